package artnet

import "testing"

func TestBuildDMXPacketHeaderAndLength(t *testing.T) {
	channels := make([]byte, 512)
	channels[0] = 255
	pkt := BuildDMXPacket(1, channels, 7)

	if len(pkt) != 18+512 {
		t.Fatalf("expected 530-byte packet, got %d", len(pkt))
	}
	if string(pkt[0:7]) != "Art-Net" || pkt[7] != 0 {
		t.Fatalf("expected Art-Net magic header, got %v", pkt[0:8])
	}
	if pkt[8] != 0x00 || pkt[9] != 0x50 {
		t.Fatalf("expected ArtDMX opcode 0x5000 little-endian, got %02x%02x", pkt[9], pkt[8])
	}
	if pkt[11] != 14 {
		t.Fatalf("expected protocol version low byte 14, got %d", pkt[11])
	}
	if pkt[12] != 7 {
		t.Fatalf("expected sequence byte 7, got %d", pkt[12])
	}
	if pkt[18] != 255 {
		t.Fatalf("expected first DMX payload byte 255, got %d", pkt[18])
	}
}

func TestBuildDMXPacketEncodesUniverseAsPortAddress(t *testing.T) {
	pkt := BuildDMXPacket(300, make([]byte, 512), 0)
	got := int(pkt[14]) | int(pkt[15])<<8
	if got != 300 {
		t.Fatalf("expected universe 300 round-tripped, got %d", got)
	}
}

func TestBuildDMXPacketPadsShortPayload(t *testing.T) {
	pkt := BuildDMXPacket(1, []byte{1, 2, 3}, 0)
	if pkt[18] != 1 || pkt[19] != 2 || pkt[20] != 3 {
		t.Fatal("expected first three bytes to match input")
	}
	if pkt[21] != 0 {
		t.Fatal("expected remaining payload zero-padded")
	}
}
