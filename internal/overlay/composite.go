package overlay

import "github.com/tuxx/shaderlock/internal/render"

// blendOver composites a premultiplied RGBA image of sw x sh pixels onto
// dst at (ox, oy) with source-over. Pixels outside dst are clipped. The
// destination alpha byte is left opaque.
func blendOver(dst *render.Frame, ox, oy int, src []byte, sw, sh int) {
	for y := 0; y < sh; y++ {
		dy := oy + y
		if dy < 0 || dy >= dst.Height {
			continue
		}
		for x := 0; x < sw; x++ {
			dx := ox + x
			if dx < 0 || dx >= dst.Width {
				continue
			}
			s := src[(y*sw+x)*4 : (y*sw+x)*4+4]
			a := uint32(s[3])
			if a == 0 {
				continue
			}
			d := dst.Pix[dy*dst.Stride+dx*4 : dy*dst.Stride+dx*4+4]
			if a == 0xff {
				d[0], d[1], d[2], d[3] = s[2], s[1], s[0], 0xff
				continue
			}
			inv := 0xff - a
			d[0] = uint8(uint32(s[2]) + (uint32(d[0])*inv+0x7f)/0xff)
			d[1] = uint8(uint32(s[1]) + (uint32(d[1])*inv+0x7f)/0xff)
			d[2] = uint8(uint32(s[0]) + (uint32(d[2])*inv+0x7f)/0xff)
			d[3] = 0xff
		}
	}
}
