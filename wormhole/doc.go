// Package wormhole implements LoRaWAN signal wormhole attacks: a pair of
// transceivers that relay traffic between a device and a gateway at
// radio distances neither could otherwise reach, optionally forwarding
// the gateway's RX2 downlink back to the device so both ends believe
// they are talking to each other directly.
package wormhole
