package speckle

import (
	"fmt"
	"image"

	"burnscar/internal/raster"

	"gocv.io/x/gocv"
)

// Boxcar applies a size×size moving average that ignores invalid pixels
// (normalized convolution: blur(x·valid) / blur(valid)). Invalid pixels
// stay invalid. size 0 or 1 disables filtering.
func Boxcar(b *raster.Band, size int) (*raster.Band, error) {
	if size <= 1 {
		return b.Clone(), nil
	}
	if size%2 == 0 {
		return nil, fmt.Errorf("boxcar size must be odd, got %d", size)
	}

	num := gocv.NewMatWithSize(b.Height, b.Width, gocv.MatTypeCV32F)
	defer num.Close()
	weight := gocv.NewMatWithSize(b.Height, b.Width, gocv.MatTypeCV32F)
	defer weight.Close()

	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			v, ok := b.At(x, y)
			if ok {
				num.SetFloatAt(y, x, float32(v))
				weight.SetFloatAt(y, x, 1)
			} else {
				num.SetFloatAt(y, x, 0)
				weight.SetFloatAt(y, x, 0)
			}
		}
	}

	numBlur := gocv.NewMat()
	defer numBlur.Close()
	weightBlur := gocv.NewMat()
	defer weightBlur.Close()

	ksize := image.Pt(size, size)
	gocv.Blur(num, &numBlur, ksize)
	gocv.Blur(weight, &weightBlur, ksize)

	out := b.Clone()
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			i := y*b.Width + x
			if !b.Valid[i] {
				continue
			}
			w := weightBlur.GetFloatAt(y, x)
			if w <= 0 {
				continue
			}
			out.Data[i] = float64(numBlur.GetFloatAt(y, x) / w)
		}
	}
	return out, nil
}
