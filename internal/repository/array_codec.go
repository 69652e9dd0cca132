package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sbinet/npyio"

	"CandleNet/internal/domain/models"
	domrepo "CandleNet/internal/domain/repository"
)

const (
	labelsName   = "labels.npy"
	featuresName = "features.npy"
	manifestName = "manifest.json"
)

// manifest describes a cached pair of arrays. Features are stored flat;
// Shape is the per-sample shape.
type manifest struct {
	Identity    models.Identity `json:"identity"`
	Shape       []int           `json:"shape"`
	Count       int             `json:"count"`
	Fingerprint string          `json:"fingerprint"`
	CreatedAt   time.Time       `json:"created_at"`
}

type encodedArrays struct {
	labels   []byte
	features []byte
	manifest []byte
}

func encodeArrays(a *domrepo.CachedArrays) (*encodedArrays, error) {
	ds := a.Dataset
	flat := make([]float32, 0, ds.Len()*ds.SampleSize())
	for _, row := range ds.Features {
		flat = append(flat, row...)
	}

	var lb, fb bytes.Buffer
	if err := npyio.Write(&lb, ds.Labels); err != nil {
		return nil, fmt.Errorf("encode labels: %w", err)
	}
	if err := npyio.Write(&fb, flat); err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}
	m, err := json.Marshal(manifest{
		Identity:    ds.Identity,
		Shape:       ds.Shape,
		Count:       ds.Len(),
		Fingerprint: a.Fingerprint,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return &encodedArrays{labels: lb.Bytes(), features: fb.Bytes(), manifest: m}, nil
}

func decodeArrays(e *encodedArrays) (*domrepo.CachedArrays, error) {
	var m manifest
	if err := json.Unmarshal(e.manifest, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	var lbls, flat []float32
	if err := npyio.Read(bytes.NewReader(e.labels), &lbls); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}
	if err := npyio.Read(bytes.NewReader(e.features), &flat); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}

	ds := &models.Dataset{Identity: m.Identity, Labels: lbls, Shape: m.Shape}
	size := ds.SampleSize()
	if len(lbls) != m.Count || len(flat) != m.Count*size {
		return nil, fmt.Errorf("cached arrays do not match manifest: %d labels, %d values, count %d shape %v",
			len(lbls), len(flat), m.Count, m.Shape)
	}
	ds.Features = make([][]float32, m.Count)
	for i := range ds.Features {
		ds.Features[i] = flat[i*size : (i+1)*size]
	}
	return &domrepo.CachedArrays{Dataset: ds, Fingerprint: m.Fingerprint}, nil
}
