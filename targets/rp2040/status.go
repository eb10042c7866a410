//go:build rp2040

package main

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ws2812"

	"irproxy/core"
)

var statusColors = [...]color.RGBA{
	core.StatusBooting:      {R: 0x10, G: 0x10, B: 0x10},
	core.StatusCooldown:     {R: 0x20, G: 0x10, B: 0x00},
	core.StatusReady:        {R: 0x00, G: 0x10, B: 0x00},
	core.StatusTransmitting: {R: 0x00, G: 0x00, B: 0x30},
	core.StatusQuarantine:   {R: 0x30, G: 0x00, B: 0x20},
	core.StatusResetting:    {R: 0x30, G: 0x00, B: 0x00},
}

// pixelIndicator shows the proxy status on a single WS2812 pixel
type pixelIndicator struct {
	dev  ws2812.Device
	last core.Status
	set  bool
}

func newPixelIndicator(pin machine.Pin) *pixelIndicator {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &pixelIndicator{dev: ws2812.New(pin)}
}

func (p *pixelIndicator) Show(s core.Status) {
	if p.set && p.last == s {
		return
	}
	p.last, p.set = s, true
	c := color.RGBA{}
	if int(s) < len(statusColors) {
		c = statusColors[s]
	}
	p.dev.WriteColors([]color.RGBA{c})
}
