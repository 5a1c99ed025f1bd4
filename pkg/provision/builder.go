package provision

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/slimloader/go/bootdesc/pkg/descriptors"
)

const (
	// ErasedByte fills region bytes nothing was written to, as erased flash reads
	ErasedByte = 0xFF

	FilePerms = 0o644
	DirPerms  = 0o755
)

// Builder produces region images from layouts.
type Builder struct {
	logger hclog.Logger
}

// NewBuilder creates a builder. A nil logger discards output.
func NewBuilder(logger hclog.Logger) *Builder {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Builder{logger: logger}
}

// span is a range of the region written by the builder.
type span struct {
	what    string
	address uint32
	data    []byte
}

func (s span) end() uint64 { return uint64(s.address) + uint64(len(s.data)) }

func (s span) overlaps(o span) bool {
	return uint64(s.address) < o.end() && uint64(o.address) < s.end()
}

// Build lays out the header, the descriptor array and any image files with
// their checksums into a region starting at l.BaseAddress. Slot numbers are
// positions in l.Slots.
func (b *Builder) Build(l *Layout) (*descriptors.Region, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	headerAddress := l.headerAddress()
	descAddress := l.descriptorAddress()
	slotCount := uint32(len(l.Slots))

	header := descriptors.NewHeader(slotCount, l.ActiveSlot, descAddress)
	headerBytes := header.Bytes()
	spans := []span{{what: "region header", address: headerAddress, data: headerBytes[:]}}

	b.logger.Debug("📦 Region header",
		"address", Word(headerAddress),
		"descriptors", Word(descAddress),
		"slots", slotCount,
		"active", l.ActiveSlot,
		"checksum", Word(header.HeaderChecksum),
	)

	for i, s := range l.Slots {
		slot := uint32(i)

		var image []byte
		imageSize := uint32(s.ImageSizeBytes)
		if s.Image != "" {
			path := l.imagePath(s)
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("slot %d: failed to read image: %w", slot, err)
			}
			if imageSize == 0 {
				imageSize = uint32(len(data))
			}
			if uint64(imageSize) < uint64(len(data)) {
				return nil, fmt.Errorf("slot %d: image %s is %d bytes, image_size_bytes is %d", slot, path, len(data), imageSize)
			}
			// Pad to the declared size the way unwritten flash reads back
			image = make([]byte, imageSize)
			copy(image, data)
			for j := len(data); j < len(image); j++ {
				image[j] = ErasedByte
			}
		}

		d, err := s.descriptor(slot, imageSize)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", slot, err)
		}
		descBytes := d.Bytes()
		spans = append(spans, span{
			what:    fmt.Sprintf("slot %d descriptor", slot),
			address: descriptors.SlotAddress(descAddress, slot),
			data:    descBytes[:],
		})

		if image != nil {
			spans = append(spans, span{
				what:    fmt.Sprintf("slot %d image", slot),
				address: d.StoredAddress,
				data:    image,
			})
			if s.StoredCRCAddress != nil {
				var crc [4]byte
				sum := descriptors.Checksum(image)
				binary.LittleEndian.PutUint32(crc[:], sum)
				spans = append(spans, span{
					what:    fmt.Sprintf("slot %d image checksum", slot),
					address: d.StoredCRCAddress,
					data:    crc[:],
				})
				b.logger.Trace("Image checksum", "slot", slot, "checksum", Word(sum))
			}
		}

		b.logger.Debug("✍️ App descriptor",
			"slot", slot,
			"kind", s.kind(),
			"app_version", d.AppVersion,
			"security_version", d.SecurityVersion,
			"flags", Word(d.Flags),
			"stored", Word(d.StoredAddress),
			"size", d.ImageSizeBytes,
			"execution", Word(d.ExecutionAddress),
			"checksum", Word(d.DescriptorChecksum),
		)
	}

	region, err := b.place(l, spans)
	if err != nil {
		return nil, err
	}

	b.logger.Info("✅ Built bootable region",
		"base", Word(region.Base),
		"size", len(region.Data),
		"slots", slotCount,
		"active", l.ActiveSlot,
	)
	return region, nil
}

// place checks the spans fit the region without overlapping and copies them
// into a region filled with ErasedByte.
func (b *Builder) place(l *Layout, spans []span) (*descriptors.Region, error) {
	base := uint32(l.BaseAddress)

	var end uint64
	for i, s := range spans {
		if s.address < base {
			return nil, fmt.Errorf("%s at %s is below base address %s", s.what, Word(s.address), l.BaseAddress)
		}
		if s.end() > 1<<32 {
			return nil, fmt.Errorf("%s at %s runs past the 32-bit address space", s.what, Word(s.address))
		}
		for _, prev := range spans[:i] {
			if s.overlaps(prev) {
				return nil, fmt.Errorf("%s at %s overlaps %s at %s", s.what, Word(s.address), prev.what, Word(prev.address))
			}
		}
		if s.end() > end {
			end = s.end()
		}
	}

	size := end - uint64(base)
	if l.Size != 0 {
		if uint64(l.Size) < size {
			return nil, fmt.Errorf("region needs %d bytes, size is %d", size, uint32(l.Size))
		}
		size = uint64(l.Size)
	}

	region := descriptors.NewRegion(base, int(size))
	for i := range region.Data {
		region.Data[i] = ErasedByte
	}
	for _, s := range spans {
		if err := region.WriteAt(s.data, s.address); err != nil {
			return nil, fmt.Errorf("%s: %w", s.what, err)
		}
	}
	return region, nil
}

// BuildFile builds the layout at layoutPath and writes the region image to
// outputPath.
func (b *Builder) BuildFile(layoutPath, outputPath string) (*descriptors.Region, error) {
	b.logger.Info("📜 Loading layout", "path", layoutPath)
	l, err := LoadLayout(layoutPath)
	if err != nil {
		return nil, err
	}

	region, err := b.Build(l)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), DirPerms); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, region.Data, FilePerms); err != nil {
		return nil, fmt.Errorf("failed to write region image: %w", err)
	}
	b.logger.Info("💾 Wrote region image", "path", outputPath, "size", len(region.Data))
	return region, nil
}
