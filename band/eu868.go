package band

import "fmt"

// eu868 implements Region for the European 863-870 MHz ISM band.
type eu868 struct{}

func init() {
	Register(eu868{})
}

func (eu868) Name() string {
	return "EU868"
}

func (eu868) DataRates() map[int]DataRate {
	return map[int]DataRate{
		0: {SpreadingFactor: 12, Bandwidth: 125, MaxPayloadSize: 59},
		1: {SpreadingFactor: 11, Bandwidth: 125, MaxPayloadSize: 59},
		2: {SpreadingFactor: 10, Bandwidth: 125, MaxPayloadSize: 59},
		3: {SpreadingFactor: 9, Bandwidth: 125, MaxPayloadSize: 123},
		4: {SpreadingFactor: 8, Bandwidth: 125, MaxPayloadSize: 230},
		5: {SpreadingFactor: 7, Bandwidth: 125, MaxPayloadSize: 230},
		6: {SpreadingFactor: 7, Bandwidth: 250, MaxPayloadSize: 230},
		7: {BitRate: 50000, MaxPayloadSize: 230},
	}
}

// rx1DROffsetTable[uplinkDR][offset] = downlink DR, per the LoRaWAN Regional
// Parameters EU868 RX1 table.
var rx1DROffsetTable = [][]int{
	{0, 0, 0, 0, 0, 0},
	{1, 0, 0, 0, 0, 0},
	{2, 1, 0, 0, 0, 0},
	{3, 2, 1, 0, 0, 0},
	{4, 3, 2, 1, 0, 0},
	{5, 4, 3, 2, 1, 0},
	{6, 5, 4, 3, 2, 1},
	{7, 6, 5, 4, 3, 2},
}

func (eu868) RX1DROffset(uplinkDR, offset int) (int, error) {
	if uplinkDR < 0 || uplinkDR >= len(rx1DROffsetTable) {
		return 0, fmt.Errorf("band: uplink data rate out of range")
	}
	row := rx1DROffsetTable[uplinkDR]
	if offset < 0 || offset >= len(row) {
		return 0, fmt.Errorf("band: RX1 data rate offset out of range")
	}
	return row[offset], nil
}

var txPowerOffsets = []int{0, -2, -4, -6, -8, -10, -12, -14}

func (eu868) TXPowerOffset(index int) (int, error) {
	if index < 0 || index >= len(txPowerOffsets) {
		return 0, fmt.Errorf("band: tx power index out of range")
	}
	return txPowerOffsets[index], nil
}

func (eu868) DefaultChannels() []Channel {
	return []Channel{
		{Frequency: 868100000, MinDR: 0, MaxDR: 5},
		{Frequency: 868300000, MinDR: 0, MaxDR: 5},
		{Frequency: 868500000, MinDR: 0, MaxDR: 5},
	}
}

func (eu868) RX2() (uint32, int) {
	return 869525000, 0
}

// Beacon geometry for EU868: 17-byte frame. The network-common part is 8
// bytes (2 RFU + 4-byte epoch time at offset 2 + its own 2-byte CRC at
// offset 6), immediately followed by the 7-byte gateway-specific part
// (info descriptor + 3-byte GPS lat + 3-byte GPS lng) and that part's own
// 2-byte CRC.
func (eu868) Beacon() BeaconLayout {
	return BeaconLayout{
		NetCommonLen:     8,
		TimeOffset:       2,
		GwSpecificOffset: 8,
		GwSpecificLen:    7,
	}
}
