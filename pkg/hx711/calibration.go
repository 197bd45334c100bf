package hx711

import "fmt"

// Tare averages samples reads and stores the result as the zero-load offset.
func (hx *HX711) Tare(samples int) {
	hx.mu.Lock()
	hx.tareOffset, _ = hx.average(samples, false)
	offset := hx.tareOffset
	hx.mu.Unlock()

	hx.log.Info().Int32("offset", offset).Int("samples", ClampSamples(samples)).Msg("tared")
}

// TareOffset returns the stored zero-load offset in raw units.
func (hx *HX711) TareOffset() int32 {
	hx.mu.Lock()
	t := hx.tareOffset
	hx.mu.Unlock()
	return t
}

// SetTareOffset restores a previously measured zero-load offset.
func (hx *HX711) SetTareOffset(offset int32) {
	hx.mu.Lock()
	hx.tareOffset = offset
	hx.mu.Unlock()
}

// SetScale sets the scale factor in raw units per gram. A scale of 0 is
// stored as 1.0 so GetWeight never divides by zero.
func (hx *HX711) SetScale(scale float32) {
	if scale == 0.0 {
		scale = 1.0
	}
	hx.mu.Lock()
	hx.scaleFactor = scale
	hx.mu.Unlock()
}

// Scale returns the scale factor in raw units per gram.
func (hx *HX711) Scale() float32 {
	hx.mu.Lock()
	s := hx.scaleFactor
	hx.mu.Unlock()
	return s
}

// GetWeight returns (ReadAverage(samples) - tare) / scale in grams. The result
// is not clamped and is negative when the reading falls below the tare offset.
func (hx *HX711) GetWeight(samples int) float32 {
	hx.mu.Lock()
	defer hx.mu.Unlock()

	if hx.scaleFactor == 0.0 {
		return 0.0
	}
	raw, _ := hx.average(samples, false)
	return hx.toGrams(raw)
}

// Weight is GetWeight, but returns the first failed read instead of folding it in.
func (hx *HX711) Weight(samples int) (float32, error) {
	hx.mu.Lock()
	defer hx.mu.Unlock()

	if hx.scaleFactor == 0.0 {
		return 0.0, nil
	}
	raw, err := hx.average(samples, true)
	if err != nil {
		return 0.0, err
	}
	return hx.toGrams(raw), nil
}

func (hx *HX711) toGrams(raw int32) float32 {
	// a restored offset may lie outside the 24-bit range
	net := int64(raw) - int64(hx.tareOffset)
	grams := float32(net) / hx.scaleFactor
	if hx.observer != nil {
		hx.observer.ObserveWeight(grams)
	}
	return grams
}

// Calibrate derives the scale factor from a reference mass of knownGrams placed
// on a tared cell, stores it and returns it.
func (hx *HX711) Calibrate(knownGrams float32, samples int) (float32, error) {
	if knownGrams == 0 {
		return 0, fmt.Errorf("%w: reference mass is zero", ErrBadReference)
	}

	hx.mu.Lock()
	raw, err := hx.average(samples, true)
	if err != nil {
		hx.mu.Unlock()
		return 0, fmt.Errorf("failed to read reference mass: %w", err)
	}
	net := int64(raw) - int64(hx.tareOffset)
	if net == 0 {
		hx.mu.Unlock()
		return 0, fmt.Errorf("%w: net reading is zero", ErrBadReference)
	}
	scale := float32(net) / knownGrams
	hx.scaleFactor = scale
	hx.mu.Unlock()

	hx.log.Info().Float32("scale", scale).Float32("reference_g", knownGrams).Int64("net", net).Msg("calibrated")
	return scale, nil
}
