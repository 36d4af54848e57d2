// Package snappad turns an Elgato Stream Deck into a snapshot selector:
// key i selects snapshot i+1 on the receiving audio application.
package snappad

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	xdraw "golang.org/x/image/draw"

	"rafaelmartins.com/p/usbhid"
)

const elgatoVendorID = 0x0fd9

type Model struct {
	Name     string
	Keys     int
	KeyCols  int
	KeySize  int
	FlipKeys bool
}

var ModelXL = Model{Name: "XL", Keys: 32, KeyCols: 8, KeySize: 96, FlipKeys: true}

var ModelPlus = Model{Name: "Plus", Keys: 8, KeyCols: 4, KeySize: 120}

var productModels = map[uint16]*Model{
	0x006c: &ModelXL,
	0x008f: &ModelXL,
	0x0084: &ModelPlus,
}

var (
	colorIdle   = color.RGBA{30, 40, 70, 255}
	colorActive = color.RGBA{50, 100, 220, 255}
)

// hidDevice is the part of *usbhid.Device the pad talks to.
type hidDevice interface {
	GetInputReport() (byte, []byte, error)
	SetOutputReport(reportID byte, data []byte) error
	GetOutputReportLength() uint16
	SetFeatureReport(reportID byte, data []byte) error
	GetFeatureReportLength() uint16
	Close() error
}

type Pad struct {
	dev   hidDevice
	model *Model
	name  string
}

func Open() (*Pad, error) {
	devices, err := usbhid.Enumerate(func(dev *usbhid.Device) bool {
		return dev.VendorId() == elgatoVendorID && productModels[dev.ProductId()] != nil
	})
	if err != nil {
		return nil, fmt.Errorf("snappad: enumerate: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("snappad: no Stream Deck found")
	}

	dev := devices[0]
	model := productModels[dev.ProductId()]
	if err := dev.Open(true); err != nil {
		return nil, fmt.Errorf("snappad: open: %w", err)
	}
	return &Pad{dev: dev, model: model, name: dev.Product()}, nil
}

func (p *Pad) Model() *Model  { return p.model }
func (p *Pad) Name() string   { return p.name }
func (p *Pad) Close() error   { return p.dev.Close() }
func (p *Pad) Snapshots() int { return p.model.Keys }

func (p *Pad) SetBrightness(perc byte) error {
	if perc > 100 {
		perc = 100
	}
	pl := make([]byte, p.dev.GetFeatureReportLength())
	pl[0] = 0x08
	pl[1] = perc
	return p.dev.SetFeatureReport(3, pl)
}

// ShowSnapshots labels the first count keys and highlights active. Keys past
// count are blanked.
func (p *Pad) ShowSnapshots(count, active int) error {
	for key := 0; key < p.model.Keys; key++ {
		var err error
		switch {
		case key >= count:
			err = p.setKeyColor(key, color.Black)
		case key+1 == active:
			err = p.setKeyText(key, colorActive, color.White, Label(key+1), "active")
		default:
			err = p.setKeyText(key, colorIdle, color.White, Label(key+1))
		}
		if err != nil {
			return fmt.Errorf("snappad: key %d: %w", key, err)
		}
	}
	return nil
}

func Label(snapshot int) string {
	return fmt.Sprintf("Snap %d", snapshot)
}

func (p *Pad) setKeyColor(key int, c color.Color) error {
	sz := p.model.KeySize
	img := image.NewRGBA(image.Rect(0, 0, sz, sz))
	xdraw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, xdraw.Src)
	return p.setKeyImage(key, img)
}

func (p *Pad) setKeyText(key int, bg, fg color.Color, lines ...string) error {
	return p.setKeyImage(key, TextImage(p.model.KeySize, bg, fg, lines...))
}

func (p *Pad) setKeyImage(key int, img image.Image) error {
	if key < 0 || key >= p.model.Keys {
		return fmt.Errorf("snappad: invalid key %d", key)
	}

	sz := p.model.KeySize
	scaled := image.NewRGBA(image.Rect(0, 0, sz, sz))
	xdraw.BiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Over, nil)

	var src image.Image = scaled
	if p.model.FlipKeys {
		src = rotate180(scaled)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 100}); err != nil {
		return err
	}
	return p.sendKeyImage(byte(key), buf.Bytes())
}

func rotate180(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(b.Max.X-1-x+b.Min.X, b.Max.Y-1-y+b.Min.Y, img.At(x, y))
		}
	}
	return out
}

// sendKeyImage splits a JPEG over output reports, each with an 8-byte
// header: 0x02 0x07 key last lenLo lenHi pageLo pageHi.
func (p *Pad) sendKeyImage(key byte, imgData []byte) error {
	reportLen := int(p.dev.GetOutputReportLength())
	const hdrLen = 8
	payloadLen := reportLen - hdrLen

	for start, page := 0, 0; start < len(imgData); page++ {
		end := min(start+payloadLen, len(imgData))
		last := byte(0)
		if end == len(imgData) {
			last = 1
		}

		chunk := imgData[start:end]
		report := make([]byte, reportLen)
		copy(report, []byte{
			0x02,
			0x07,
			key,
			last,
			byte(len(chunk)),
			byte(len(chunk) >> 8),
			byte(page),
			byte(page >> 8),
		})
		copy(report[hdrLen:], chunk)

		if err := p.dev.SetOutputReport(2, report); err != nil {
			return err
		}
		start = end
	}
	return nil
}

// ReadSelections sends the 1-based snapshot of every key press to ch. It
// blocks until reading from the device fails.
func (p *Pad) ReadSelections(ch chan<- int) error {
	keyStates := make([]byte, p.model.Keys)
	for {
		_, buf, err := p.dev.GetInputReport()
		if err != nil {
			return fmt.Errorf("snappad: read: %w", err)
		}
		for _, key := range pressedKeys(buf, keyStates) {
			ch <- key + 1
		}
	}
}

// pressedKeys compares a key report against the previous states, updates
// them and returns keys that went down.
func pressedKeys(buf []byte, states []byte) []int {
	const keyStart = 3
	if len(buf) < 4 || buf[0] != 0x00 {
		return nil
	}
	var pressed []int
	for i := range states {
		if keyStart+i >= len(buf) {
			break
		}
		st := buf[keyStart+i]
		if st != states[i] {
			if st > 0 {
				pressed = append(pressed, i)
			}
			states[i] = st
		}
	}
	return pressed
}
