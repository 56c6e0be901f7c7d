package saes

// State is the 16-byte cipher state, a 4x4 matrix stored column by column:
// byte i sits at row i%4, column i/4.
type State [16]byte

// SubBytes substitutes every byte through the S-box.
func (s *State) SubBytes() {
	for i := range s {
		s[i] = sbox[s[i]]
	}
}

// InvSubBytes reverses SubBytes.
func (s *State) InvSubBytes() {
	for i := range s {
		s[i] = invSbox[s[i]]
	}
}

// ShiftRows rotates row r left by r positions.
func (s *State) ShiftRows() {
	var t State
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			t[4*c+r] = s[4*((c+r)%4)+r]
		}
	}
	*s = t
}

// InvShiftRows rotates row r right by r positions.
func (s *State) InvShiftRows() {
	var t State
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			t[4*((c+r)%4)+r] = s[4*c+r]
		}
	}
	*s = t
}

// MixColumns multiplies each column by {02 03 01 01} in GF(2^8).
func (s *State) MixColumns() {
	for c := 0; c < 16; c += 4 {
		a0, a1, a2, a3 := s[c], s[c+1], s[c+2], s[c+3]
		s[c] = xtime(a0) ^ xtime(a1) ^ a1 ^ a2 ^ a3
		s[c+1] = a0 ^ xtime(a1) ^ xtime(a2) ^ a2 ^ a3
		s[c+2] = a0 ^ a1 ^ xtime(a2) ^ xtime(a3) ^ a3
		s[c+3] = xtime(a0) ^ a0 ^ a1 ^ a2 ^ xtime(a3)
	}
}

// InvMixColumns multiplies each column by {0e 0b 0d 09}.
func (s *State) InvMixColumns() {
	for c := 0; c < 16; c += 4 {
		a0, a1, a2, a3 := s[c], s[c+1], s[c+2], s[c+3]
		s[c] = gfMul(a0, 0x0e) ^ gfMul(a1, 0x0b) ^ gfMul(a2, 0x0d) ^ gfMul(a3, 0x09)
		s[c+1] = gfMul(a0, 0x09) ^ gfMul(a1, 0x0e) ^ gfMul(a2, 0x0b) ^ gfMul(a3, 0x0d)
		s[c+2] = gfMul(a0, 0x0d) ^ gfMul(a1, 0x09) ^ gfMul(a2, 0x0e) ^ gfMul(a3, 0x0b)
		s[c+3] = gfMul(a0, 0x0b) ^ gfMul(a1, 0x0d) ^ gfMul(a2, 0x09) ^ gfMul(a3, 0x0e)
	}
}

// AddRoundKey XORs a round key into the state. It is its own inverse.
func (s *State) AddRoundKey(rk *[16]byte) {
	for i := range s {
		s[i] ^= rk[i]
	}
}
