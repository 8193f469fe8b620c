package brick

import "fmt"

// Display geometry. The framebuffer is 1-bit, packed 8 vertical pixels
// per byte, 100 bytes per row band.
const (
	DisplayWidth   = 100
	DisplayHeight  = 64
	DisplayDataLen = DisplayWidth * DisplayHeight / 8
)

const (
	modDisplay        = 0xA0001
	displayDataOffset = 119
	displayChunkSize  = 32
	displayNumChunks  = DisplayDataLen / displayChunkSize
)

// GetDisplayData captures the brick's screen contents by reading the
// display module's IO map in 32-byte chunks.
func (b *Brick) GetDisplayData() ([]byte, error) {
	out := make([]byte, 0, DisplayDataLen)
	for i := 0; i < displayNumChunks; i++ {
		chunk, err := b.ReadIOMap(modDisplay, displayDataOffset+uint16(i)*displayChunkSize, displayChunkSize)
		if err != nil {
			return nil, err
		}
		if len(chunk) != displayChunkSize {
			return nil, fmt.Errorf("brick: short display chunk (%d of %d bytes)", len(chunk), displayChunkSize)
		}
		out = append(out, chunk...)
	}
	return out, nil
}
