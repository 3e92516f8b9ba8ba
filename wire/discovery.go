package wire

const (
	discoveryQuestion = "Is anyone there?"
	discoveryAnswer   = "Yes I am here"
)

// DiscoveryRequest is broadcast by a peer looking for a host.
func DiscoveryRequest() []byte {
	m := NewMessage(KindDiscovery)
	m.PutString(discoveryQuestion)
	return m.Bytes()
}

func IsDiscoveryRequest(b []byte) bool {
	m, kind, err := ParseMessage(b)
	if err != nil || kind != KindDiscovery {
		return false
	}
	return m.Text() == discoveryQuestion && m.Err() == nil && m.Remaining() == 0
}

// DiscoveryReply tells the asker which TCP port the host accepts on.
func DiscoveryReply(port uint16) []byte {
	m := NewMessage(KindDiscovery)
	m.PutString(discoveryAnswer)
	m.PutU16(port)
	return m.Bytes()
}

func ParseDiscoveryReply(b []byte) (uint16, bool) {
	m, kind, err := ParseMessage(b)
	if err != nil || kind != KindDiscovery {
		return 0, false
	}
	if m.Text() != discoveryAnswer {
		return 0, false
	}
	port := m.U16()
	if m.Err() != nil || port == 0 {
		return 0, false
	}
	return port, true
}
