package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validLooking() Characteristics {
	return Characteristics{
		Brightness:              90,
		Contrast:                0.5,
		DarkRatio:               0.35,
		BrightRatio:             0.15,
		HasGrayscaleLook:        true,
		HasAnatomicalStructures: true,
		IsDicomLike:             true,
	}
}

func TestClassifier_IsValid(t *testing.T) {
	c := NewClassifier(defaults())

	tests := []struct {
		name   string
		mutate func(*Characteristics)
		file   FileInfo
		want   bool
	}{
		{name: "png", file: FileInfo{"scan.png", 50_000}, want: true},
		{name: "upper-case extension", file: FileInfo{"SCAN.PNG", 50_000}, want: true},
		{name: "dicom", file: FileInfo{"head.dicom", 50_000}, want: true},
		{name: "dcm", file: FileInfo{"head.dcm", 50_000}, want: true},
		{name: "jpeg", file: FileInfo{"knee.jpeg", 50_000}, want: true},
		{name: "gif rejected", file: FileInfo{"scan.gif", 50_000}},
		{name: "no extension", file: FileInfo{"scan", 50_000}},
		{name: "size at minimum", file: FileInfo{"scan.png", 10_000}},
		{name: "size above minimum", file: FileInfo{"scan.png", 10_001}, want: true},
		{
			name:   "not grayscale",
			mutate: func(c *Characteristics) { c.HasGrayscaleLook = false },
			file:   FileInfo{"scan.png", 50_000},
		},
		{
			name:   "contrast at minimum",
			mutate: func(c *Characteristics) { c.Contrast = 0.2 },
			file:   FileInfo{"scan.png", 50_000},
		},
		{
			name:   "brightness at maximum",
			mutate: func(c *Characteristics) { c.Brightness = 180 },
			file:   FileInfo{"scan.png", 50_000},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := validLooking()
			if tt.mutate != nil {
				tt.mutate(&ch)
			}
			assert.Equal(t, tt.want, c.IsValid(ch, tt.file))
		})
	}
}

func TestClassifier_ScanTypeFromName(t *testing.T) {
	c := NewClassifier(defaults())
	ch := Characteristics{Brightness: 120, Contrast: 0.25}

	tests := []struct {
		name string
		want ScanType
	}{
		{"chest_XRAY_01.png", ScanTypeXRay},
		{"left-hand-x-ray.jpg", ScanTypeXRay},
		{"Brain_MRI.png", ScanTypeMRI},
		{"mri_then_ct.png", ScanTypeMRI},
		{"abdomen_ct.png", ScanTypeCT},
		{"cat_scan.png", ScanTypeCT},
		{"picture.png", ScanTypeCT},
		{"ultrasound.png", ScanTypeUltrasound},
		{"Echo_4ch.jpg", ScanTypeUltrasound},
		{"image_001.png", ScanTypeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ScanType(ch, tt.name))
		})
	}
}

func TestClassifier_ScanTypeFallback(t *testing.T) {
	c := NewClassifier(defaults())

	tests := []struct {
		name string
		ch   Characteristics
		want ScanType
	}{
		{"dicom-like high contrast", Characteristics{Brightness: 90, Contrast: 0.45, IsDicomLike: true}, ScanTypeXRay},
		{"dicom-like moderate contrast is MRI", Characteristics{Brightness: 90, Contrast: 0.35, IsDicomLike: true}, ScanTypeMRI},
		{"dark", Characteristics{Brightness: 95, Contrast: 0.31}, ScanTypeMRI},
		{"bright", Characteristics{Brightness: 120, Contrast: 0.36}, ScanTypeCT},
		{"brightness exactly 100", Characteristics{Brightness: 100, Contrast: 0.5}, ScanTypeGeneric},
		{"flat", Characteristics{Brightness: 120, Contrast: 0.32}, ScanTypeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ScanType(tt.ch, "image_001.png"))
		})
	}
}

func TestClassifier_BodyPartWeights(t *testing.T) {
	c := NewClassifier(defaults())

	tests := []struct {
		scan ScanType
		draw float64
		want BodyPart
	}{
		{ScanTypeXRay, 0.0, BodyPartChest},
		{ScanTypeXRay, 0.39, BodyPartChest},
		{ScanTypeXRay, 0.4, BodyPartExtremities},
		{ScanTypeXRay, 0.69, BodyPartExtremities},
		{ScanTypeXRay, 0.75, BodyPartSpine},
		{ScanTypeXRay, 0.95, BodyPartAbdomen},
		{ScanTypeMRI, 0.1, BodyPartBrain},
		{ScanTypeMRI, 0.5, BodyPartSpine},
		{ScanTypeMRI, 0.8, BodyPartHeart},
		{ScanTypeMRI, 0.95, BodyPartAbdomen},
		{ScanTypeCT, 0.1, BodyPartChest},
		{ScanTypeCT, 0.45, BodyPartAbdomen},
		{ScanTypeCT, 0.7, BodyPartBrain},
		{ScanTypeCT, 0.95, BodyPartHeart},
		{ScanTypeGeneric, 0.0, BodyPartChest},
		{ScanTypeGeneric, 0.17, BodyPartBrain},
		{ScanTypeGeneric, 0.99, BodyPartExtremities},
		{ScanTypeUltrasound, 0.5, BodyPartAbdomen},
	}
	for _, tt := range tests {
		t.Run(string(tt.scan), func(t *testing.T) {
			rnd := draws(t, tt.draw)
			assert.Equal(t, tt.want, c.BodyPart(tt.scan, rnd))
			assert.Equal(t, 1, rnd.consumed())
		})
	}
}

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(defaults())

	rnd := draws(t, 0.5)
	got := c.Classify(validLooking(), FileInfo{"chest_xray_01.dcm", 200_000}, rnd)
	assert.Equal(t, Classification{Valid: true, ScanType: ScanTypeXRay, BodyPart: BodyPartExtremities}, got)

	invalid := draws(t)
	got = c.Classify(validLooking(), FileInfo{"chest_xray_01.bmp", 200_000}, invalid)
	assert.Equal(t, Classification{}, got)
	assert.Zero(t, invalid.consumed(), "invalid scans make no draws")
}

func TestClassifier_CustomThresholds(t *testing.T) {
	th := defaults()
	th.Validity.MinFileSize = 100
	th.Validity.Extensions = []string{".bmp"}
	c := NewClassifier(th)

	assert.True(t, c.IsValid(validLooking(), FileInfo{"scan.bmp", 101}))
	assert.False(t, c.IsValid(validLooking(), FileInfo{"scan.png", 50_000}))
}
