package main

import (
	"image/png"
	"os"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

const qrSize = 512

// writeQR renders content as a PNG QR code in path.
func writeQR(path string, content string) error {
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if nil != err {
		return err
	}
	code, err = barcode.Scale(code, qrSize, qrSize)
	if nil != err {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if nil != err {
		return err
	}
	err = png.Encode(f, code)
	if cerr := f.Close(); nil == err {
		err = cerr
	}
	return err
}
