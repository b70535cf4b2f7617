// Command warp applies affine transformations to an image file.
//
// Usage:
//
//	warp -in photo.png -out rotated.png -angle 30
//	warp -in photo.jpg -out shifted.png -dx 15 -dy -10
//	warp -in photo.webp -out half.png -scale 0.5 -gpu
package main

import (
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"

	"github.com/openfluke/warp/affine"
	"github.com/openfluke/warp/gpu"
	"github.com/openfluke/warp/imgio"
	"github.com/openfluke/warp/tensor"
)

func main() {
	in := flag.String("in", "", "input image (png, jpeg or webp)")
	out := flag.String("out", "", "output image (png)")
	angle := flag.Float64("angle", 0, "rotation angle in degrees, anti-clockwise")
	scale := flag.Float64("scale", 1, "scale factor about the image center")
	dx := flag.Float64("dx", 0, "horizontal shift in pixels")
	dy := flag.Float64("dy", 0, "vertical shift in pixels")
	useGPU := flag.Bool("gpu", false, "run the warp on the WebGPU backend")
	flag.Parse()

	if *in == "" || *out == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*in)
	if err != nil {
		log.Fatalf("open input: %v", err)
	}
	img, err := imgio.Decode(f)
	f.Close()
	if err != nil {
		log.Fatalf("decode input: %v", err)
	}
	t := imgio.ToTensor(img)

	e := &affine.Engine[float32]{}
	if *useGPU {
		w, err := gpu.NewWarper()
		if err != nil {
			log.Fatalf("gpu init: %v", err)
		}
		defer w.Cleanup()
		e = affine.NewEngine[float32](w)
	}

	if *angle != 0 {
		t, err = e.Rotate(t, tensor.Scalar(float32(*angle)), nil)
		if err != nil {
			log.Fatalf("rotate: %v", err)
		}
	}
	if *scale != 1 {
		t, err = e.Scale(t, tensor.Scalar(float32(*scale)), nil)
		if err != nil {
			log.Fatalf("scale: %v", err)
		}
	}
	if *dx != 0 || *dy != 0 {
		offset, _ := tensor.FromSlice([]float32{float32(*dx), float32(*dy)}, 2)
		t, err = e.Translate(t, offset)
		if err != nil {
			log.Fatalf("translate: %v", err)
		}
	}

	result, err := imgio.FromTensor(t)
	if err != nil {
		log.Fatalf("convert result: %v", err)
	}
	o, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create output: %v", err)
	}
	defer o.Close()
	if err := png.Encode(o, result); err != nil {
		log.Fatalf("encode output: %v", err)
	}
	fmt.Printf("wrote %s (%dx%d)\n", *out, result.Bounds().Dx(), result.Bounds().Dy())
}
