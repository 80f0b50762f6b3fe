package vietqr

// CRC16 computes CRC-16/CCITT-FALSE: polynomial 0x1021, initial value 0xFFFF,
// MSB first, no reflection and no final xor.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
