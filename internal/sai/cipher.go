package sai

import (
	"encoding/binary"
	"math/bits"
)

// PageSize is the fixed size of every page in the container.
const PageSize = 4096

// pageWords is the number of 32-bit little-endian words per page.
const pageWords = PageSize / 4

// keyTable is the 256-entry static key table of the container's stream
// cipher. The values are fixed by the format; changing any entry makes
// every existing container unreadable.
var keyTable = [256]uint32{
	0xCC9B4B0D, 0x9473462F, 0x469C17DD, 0xBB921947,
	0xE48F62CD, 0x76DC8A49, 0xF7F32ACA, 0xA3EF67F7,
	0x27A908A7, 0x4AF7C631, 0x0C93D3C4, 0x181EBEA3,
	0x9E4BD777, 0x4ADC330C, 0xCD515D2A, 0xB569663A,
	0x197E2999, 0xC2035A66, 0x00A67CF7, 0xDBB7696D,
	0x5CF5D488, 0x8A16C23E, 0x9BBCA459, 0xDB24EE01,
	0x2B0D9B3E, 0x6E6CD7E6, 0x40F4B4AC, 0x78B8A908,
	0x805D900D, 0xED09BCD0, 0x7A409BD5, 0x0CFA8D14,
	0x3A984DEC, 0x1B841D11, 0x9D52FE57, 0x36EB149E,
	0x1E5CE492, 0x5B68D3CE, 0x4CB679FE, 0xFD93928C,
	0xF20EB4B1, 0x5A2A5153, 0x1E3D5934, 0x77EFE622,
	0xA88C6004, 0x31B34BFA, 0x4C9429BF, 0xB352BFBE,
	0xDD3C23A3, 0xE70D6A6F, 0xD3AE9D7F, 0x9B184B04,
	0x7DA58917, 0xCBE0BB90, 0x40D75BB8, 0x30FCA1AA,
	0xDDE0AEFD, 0x0FFAD875, 0x085D7CBB, 0x0E13E256,
	0xAC5559F1, 0x6A4A2FE2, 0x6950F431, 0x3D70499A,
	0x61328120, 0x753958CC, 0x6A71E207, 0xB8ECDD8A,
	0x72F5418C, 0xD960B427, 0x072B948A, 0xD1D6D2E0,
	0x43119D0D, 0xCC85AD36, 0xD4BCE837, 0x6B91EC48,
	0x59323CA7, 0x4240CAC5, 0x2F1D32A3, 0xC9399FF9,
	0x72EDB454, 0x25F0F9C2, 0x8BA3F7CE, 0xE96BB892,
	0x80A23719, 0x98677C0D, 0x9F895730, 0xC93B36E5,
	0xD4A32BCD, 0x590B21D8, 0xC7B7AFF0, 0x56C862D3,
	0xF702DCE9, 0xB81ECF2E, 0xF82D9939, 0xC4EC5303,
	0x476FD714, 0x4ECA84BB, 0xF3CCF9E0, 0x2035ABA6,
	0x38FC6662, 0x3087F48A, 0x3E55AA78, 0x98322542,
	0x01D3544C, 0xFEBB104E, 0x92E1E77A, 0x557DFC30,
	0xFDFD1C26, 0xD29CEFDD, 0x82E659EE, 0x180DA18D,
	0xAABD0B08, 0xF7270501, 0x3B5246E5, 0x95E77079,
	0x4B456B4B, 0x76007BF0, 0xADD912D9, 0xB2A0A12D,
	0x4B0E4EDB, 0x618D8DE8, 0x9D942522, 0x9235CF99,
	0x75994850, 0x186DB759, 0x1834524E, 0x6B8A6D68,
	0x4C9C7CA8, 0x187F65A2, 0x78E31153, 0x3474DED1,
	0xA82AA5E9, 0x8DC75946, 0x7D73251B, 0xFBEE6725,
	0x2BB9C596, 0xBEEB9268, 0x181A36E2, 0x7FEB61EE,
	0xB4A79062, 0x28549EAD, 0xA25852D4, 0x723207B0,
	0x7225CBC3, 0x546575A1, 0xEBAF5481, 0x161E3161,
	0xB8376150, 0x42BE9692, 0x08FD7602, 0x4EE7E9B9,
	0x52EF7377, 0x0E24C92E, 0xD97BF922, 0x065151B7,
	0xC1E2D683, 0xD2DB2DE4, 0x741500BB, 0x1DB690FA,
	0x3C8645F3, 0x5BF85093, 0xD01ED8B3, 0x8A6A7D24,
	0x767EF562, 0x528BC6EA, 0x9C4A3558, 0xC2471645,
	0x7ED1539E, 0x5FA78A31, 0xDD453C01, 0x7EE8206A,
	0xDF92F714, 0x2A51262C, 0xF1D58633, 0x47F5804B,
	0xDAA4729E, 0x0E2F7843, 0xABA242A9, 0x6D30E2FB,
	0xB2064BB7, 0x245C397C, 0x7BF88A4C, 0x07B9EABA,
	0xDB1D0A44, 0x8EB14B71, 0xC982AEE4, 0x49909D93,
	0x5B6C8840, 0x5919D7A6, 0xEC43F6E7, 0xF6C13FCC,
	0x7687F09B, 0x3FF1511E, 0xA3F800CA, 0xAE0D150E,
	0x81EAFBE7, 0xC01CACBB, 0x879287A2, 0xC2972BFE,
	0xC099EBA3, 0x3F4FF599, 0x97EBECA5, 0x83DCFEB9,
	0xDC5E5C1B, 0xE07BAF1A, 0x21CBC3AE, 0x658CD548,
	0x6D682254, 0x23C16864, 0x3B70ECF9, 0xBF074DE6,
	0x93935275, 0x3636F432, 0xA69A3E99, 0x60DD39E5,
	0x91A05C9D, 0xDFC92CED, 0x6B94E821, 0x9ABD1B15,
	0xBE315C14, 0x02E239E0, 0x570C2AD6, 0xF4631321,
	0xCCACAB6F, 0x7966B4B7, 0xA3E15C4C, 0x022F8A56,
	0xC91A77FC, 0xC607E21E, 0x7B242F97, 0x5C62168F,
	0x43100355, 0x2CD22708, 0x1373BFC0, 0xC3FA7D9B,
	0x75BF76E2, 0x6D6A34CC, 0xD2B62FCF, 0x25F88A95,
	0x923C55CC, 0x27DD479C, 0x2CB57B82, 0xE5CCC1EB,
	0x07DE9C85, 0x3A4A164E, 0xF266E2FC, 0xE63BFE42,
	0x54857967, 0xF7F6FD71, 0xA1ED621A, 0xF833C90B,
	0x507869F8, 0x13A3A072, 0x4DDF84D6, 0x73360C16,
}

// DecryptPage decrypts one 4096-byte page in place. The vector is the
// page's initial vector: the page index for table pages, the
// table-recorded checksum for data pages.
func DecryptPage(page []byte, vector uint32) {
	_ = page[PageSize-1]
	for i := 0; i < PageSize; i += 4 {
		c := binary.LittleEndian.Uint32(page[i:])
		p := c ^ vector ^ keyTable[vector&0xFF]
		binary.LittleEndian.PutUint32(page[i:], p)
		vector = bits.RotateLeft32(vector, 5) + c
	}
}

// EncryptPage is the inverse of DecryptPage. The engine never writes
// containers; this exists so fixtures and the cipher stay in lockstep.
func EncryptPage(page []byte, vector uint32) {
	_ = page[PageSize-1]
	for i := 0; i < PageSize; i += 4 {
		p := binary.LittleEndian.Uint32(page[i:])
		c := p ^ vector ^ keyTable[vector&0xFF]
		binary.LittleEndian.PutUint32(page[i:], c)
		vector = bits.RotateLeft32(vector, 5) + c
	}
}

// Checksum computes the rolling checksum of a decrypted page: rotate-left
// by one, XOR the next word, low bit forced to one. The forced bit keeps
// every valid checksum distinct from the zero "unused slot" marker in
// table pages, and doubles as a data page's decryption vector.
func Checksum(page []byte) uint32 {
	var sum uint32
	for i := 0; i < PageSize; i += 4 {
		sum = bits.RotateLeft32(sum, 1) ^ binary.LittleEndian.Uint32(page[i:])
	}
	return sum | 1
}

// tableChecksum is Checksum with the table page's own checksum slot
// (word 0) excluded, since a page cannot include its own checksum in the
// sum it stores.
func tableChecksum(page []byte) uint32 {
	var sum uint32
	for i := 4; i < PageSize; i += 4 {
		sum = bits.RotateLeft32(sum, 1) ^ binary.LittleEndian.Uint32(page[i:])
	}
	return sum | 1
}
