// Package modem implements the bit-exact wire protocol used to talk to a
// lora_controller companion process (TCP, UART or a spawned PTY child),
// and the typed facade built on top of it.
package modem
