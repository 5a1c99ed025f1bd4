package provision

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gopkg.in/yaml.v3"

	"github.com/provide-io/slimloader/go/bootdesc/pkg/descriptors"
)

func TestWordJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    Word
		wantErr bool
	}{
		{in: `4096`, want: 4096},
		{in: `"0x1000"`, want: 0x1000},
		{in: `"0x0800_0000"`, want: 0x0800_0000},
		{in: `"4096"`, want: 4096},
		{in: `"0o17"`, want: 15},
		{in: `"0x1_0000_0000"`, wantErr: true},
		{in: `-1`, wantErr: true},
		{in: `"flash"`, wantErr: true},
		{in: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var w Word
			err := json.Unmarshal([]byte(tt.in), &w)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Unmarshal(%s) = %v, expected error", tt.in, w)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.in, err)
			}
			if w != tt.want {
				t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, w, tt.want)
			}
		})
	}

	out, err := json.Marshal(Word(0x2000_0000))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `"0x20000000"` {
		t.Errorf("Marshal() = %s", out)
	}
}

func TestWordYAML(t *testing.T) {
	var v struct {
		A Word `yaml:"a"`
		B Word `yaml:"b"`
		C Word `yaml:"c"`
	}
	doc := "a: 0x08000000\nb: 512\nc: \"0x2000_0000\"\n"
	if err := yaml.Unmarshal([]byte(doc), &v); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if v.A != 0x0800_0000 || v.B != 512 || v.C != 0x2000_0000 {
		t.Errorf("decoded %v %v %v", v.A, v.B, v.C)
	}

	if err := yaml.Unmarshal([]byte("a: [1, 2]\n"), &v); err == nil {
		t.Error("expected error for a sequence")
	}
}

const yamlLayout = `
base_address: 0x08000000
descriptor_version: "0.1.5"
active_slot: 1
slots:
  - kind: xip
    app_version: 1
    security_version: 1
    stored_address: 0x08001000
    image_size_bytes: 0x400
    stored_crc_address: 0x08000FFC
  - kind: ram
    app_version: 2
    security_version: 1
    flags: [skip_image_crc]
    stored_address: 0x08002000
    image_size_bytes: 2048
    ram_address: 0x20000000
`

const jsonLayout = `{
  "base_address": "0x08000000",
  "descriptor_version": "0.1.5",
  "active_slot": 1,
  "slots": [
    {"kind": "xip", "app_version": 1, "security_version": 1,
     "stored_address": "0x08001000", "image_size_bytes": 1024, "stored_crc_address": "0x08000FFC"},
    {"kind": "ram", "app_version": 2, "security_version": 1, "flags": ["skip_image_crc"],
     "stored_address": 134225920, "image_size_bytes": "0x800", "ram_address": "0x20000000"}
  ]
}`

func TestLoadLayoutFormats(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "region.yaml")
	jsonPath := filepath.Join(dir, "region.json")
	if err := os.WriteFile(yamlPath, []byte(yamlLayout), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(jsonPath, []byte(jsonLayout), 0o600); err != nil {
		t.Fatal(err)
	}

	fromYAML, err := LoadLayout(yamlPath)
	if err != nil {
		t.Fatalf("LoadLayout(yaml) error = %v", err)
	}
	fromJSON, err := LoadLayout(jsonPath)
	if err != nil {
		t.Fatalf("LoadLayout(json) error = %v", err)
	}

	if diff := cmp.Diff(fromYAML, fromJSON, cmpopts.IgnoreUnexported(Layout{})); diff != "" {
		t.Errorf("YAML and JSON layouts differ (-yaml +json):\n%s", diff)
	}
	if err := fromYAML.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if fromYAML.Slots[1].StoredAddress != 0x0800_2000 {
		t.Errorf("slot 1 stored address = %v", fromYAML.Slots[1].StoredAddress)
	}
}

func TestLayoutValidate(t *testing.T) {
	crc := Word(0x0800_0FFC)
	ram := Word(0x2000_0000)
	valid := func() *Layout {
		return &Layout{
			BaseAddress: 0x0800_0000,
			Slots: []SlotLayout{
				{StoredAddress: 0x0800_1000, ImageSizeBytes: 16, StoredCRCAddress: &crc},
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(l *Layout)
		ok     bool
		want   error
	}{
		{name: "valid", mutate: func(l *Layout) {}, ok: true},
		{
			name: "image checksum skipped without address",
			mutate: func(l *Layout) {
				l.Slots[0].StoredCRCAddress = nil
				l.Slots[0].Image = "app.bin"
				l.Slots[0].Flags = []string{FlagNameSkipImageCRC}
			},
			ok: true,
		},
		{
			name: "image without checksum address",
			mutate: func(l *Layout) {
				l.Slots[0].StoredCRCAddress = nil
				l.Slots[0].Image = "app.bin"
			},
			want: ErrNoImageChecksum,
		},
		{
			name:   "size without checksum address",
			mutate: func(l *Layout) { l.Slots[0].StoredCRCAddress = nil },
			want:   ErrNoImageChecksum,
		},
		{
			name:   "no slots",
			mutate: func(l *Layout) { l.Slots = nil },
			want:   descriptors.ErrInvalidSlotCount,
		},
		{
			name:   "active out of range",
			mutate: func(l *Layout) { l.ActiveSlot = 1 },
			want:   descriptors.ErrInvalidAppSlot,
		},
		{
			name:   "unknown flag",
			mutate: func(l *Layout) { l.Slots[0].Flags = []string{"compress"} },
		},
		{
			name:   "unknown kind",
			mutate: func(l *Layout) { l.Slots[0].Kind = "overlay" },
		},
		{
			name:   "ram without ram address",
			mutate: func(l *Layout) { l.Slots[0].Kind = KindRAM },
		},
		{
			name: "xip with ram address",
			mutate: func(l *Layout) {
				l.Slots[0].RAMAddress = &ram
			},
		},
		{
			name:   "no size",
			mutate: func(l *Layout) { l.Slots[0].ImageSizeBytes = 0 },
		},
		{
			name:   "incompatible version",
			mutate: func(l *Layout) { l.DescriptorVersion = "1.0.0" },
		},
		{
			name: "header below base",
			mutate: func(l *Layout) {
				h := Word(0x0700_0000)
				l.HeaderAddress = &h
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := valid()
			tt.mutate(l)
			err := l.Validate()
			if tt.ok {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadLayoutErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadLayout(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"base_address": "nowhere"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLayout(bad); err == nil {
		t.Error("expected error for bad address")
	}
}
