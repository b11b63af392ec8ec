package geofence

import (
	"errors"
	"math"
	"testing"
)

// kuwaitCity is the company HQ coordinate used across the end-to-end scenarios.
var kuwaitCity = Point{Lat: 29.3759, Lng: 47.9774}

func TestDistanceZeroAtSamePoint(t *testing.T) {
	points := []Point{
		{0, 0},
		kuwaitCity,
		{-33.8688, 151.2093},
		{89.9, 0},
	}
	for _, p := range points {
		if d := Distance(p, p); d != 0 {
			t.Errorf("Distance(%v, %v) = %v, want 0", p, p, d)
		}
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a := kuwaitCity
	b := Point{Lat: 29.3780, Lng: 47.9900}
	ab := Distance(a, b)
	ba := Distance(b, a)
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("Distance not symmetric: %v vs %v", ab, ba)
	}
}

func TestDistanceKnownValue(t *testing.T) {
	// One degree of latitude is ~111.2 km.
	a := Point{Lat: 29.0, Lng: 47.0}
	b := Point{Lat: 30.0, Lng: 47.0}
	d := Distance(a, b)
	if math.Abs(d-111195) > 200 {
		t.Errorf("expected ~111195m for one degree of latitude, got %v", d)
	}
}

func TestVerify(t *testing.T) {
	// ~250m east of HQ at this latitude.
	away := Point{Lat: 29.3759, Lng: 47.9774 + 250.0/(111320.0*math.Cos(29.3759*math.Pi/180))}

	tests := []struct {
		name      string
		fence     Resolved
		device    Point
		verified  bool
		distanceM float64
		tolerance float64
	}{
		{
			name:      "exact center",
			fence:     Resolved{Center: kuwaitCity, RadiusM: 100},
			device:    kuwaitCity,
			verified:  true,
			distanceM: 0,
			tolerance: 0.001,
		},
		{
			name:      "250m away with 100m radius",
			fence:     Resolved{Center: kuwaitCity, RadiusM: 100},
			device:    away,
			verified:  false,
			distanceM: 250,
			tolerance: 5,
		},
		{
			name:      "250m away with 1000m radius",
			fence:     Resolved{Center: kuwaitCity, RadiusM: 1000},
			device:    away,
			verified:  true,
			distanceM: 250,
			tolerance: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Verify(tt.fence, tt.device)
			if res.Verified != tt.verified {
				t.Errorf("Verified = %v, want %v (distance %v)", res.Verified, tt.verified, res.DistanceM)
			}
			if math.Abs(res.DistanceM-tt.distanceM) > tt.tolerance {
				t.Errorf("DistanceM = %v, want %v ± %v", res.DistanceM, tt.distanceM, tt.tolerance)
			}
		})
	}
}

func TestVerifyBoundaryEqualsRadius(t *testing.T) {
	// verified ⇔ distance <= radius, so a device exactly on the rim passes.
	fence := Resolved{Center: Point{0, 0}, RadiusM: 100}
	res := Verify(fence, Point{0, 0})
	if !res.Verified {
		t.Error("distance 0 must verify for any radius")
	}

	for _, radius := range []float64{MinRadiusM, 250, MaxRadiusM} {
		fence := Resolved{Center: kuwaitCity, RadiusM: radius}
		res := Verify(fence, kuwaitCity)
		if !res.Verified || res.DistanceM != 0 {
			t.Errorf("radius %v: expected verified at center, got %+v", radius, res)
		}
	}
}

func TestResolve(t *testing.T) {
	center := kuwaitCity
	other := Point{Lat: 29.3, Lng: 48.0}

	tests := []struct {
		name           string
		override       *Config
		companyDefault *Config
		wantCenter     *Point
		wantRadius     float64
		wantErr        error
	}{
		{
			name:           "active override wins",
			override:       &Config{Center: &other, RadiusM: 50, Active: true},
			companyDefault: &Config{Center: &center, RadiusM: 100, Active: true},
			wantCenter:     &other,
			wantRadius:     50,
		},
		{
			name:           "override deferring to company default",
			override:       &Config{Center: &other, RadiusM: 50, Active: true, UseCompanyDefault: true},
			companyDefault: &Config{Center: &center, RadiusM: 100, Active: true},
			wantCenter:     &center,
			wantRadius:     100,
		},
		{
			name:           "inactive override falls through",
			override:       &Config{Center: &other, RadiusM: 50, Active: false},
			companyDefault: &Config{Center: &center, RadiusM: 100, Active: true},
			wantCenter:     &center,
			wantRadius:     100,
		},
		{
			name:           "override without coordinates falls through",
			override:       &Config{Center: nil, RadiusM: 50, Active: true},
			companyDefault: &Config{Center: &center, RadiusM: 100, Active: true},
			wantCenter:     &center,
			wantRadius:     100,
		},
		{
			name:           "no override, company default",
			companyDefault: &Config{Center: &center, RadiusM: 100, Active: true},
			wantCenter:     &center,
			wantRadius:     100,
		},
		{
			name:           "inactive company default is missing config",
			companyDefault: &Config{Center: &center, RadiusM: 100, Active: false},
			wantErr:        ErrConfigMissing,
		},
		{
			name:           "company default without coordinates is missing config",
			companyDefault: &Config{Active: true, RadiusM: 100},
			wantErr:        ErrConfigMissing,
		},
		{
			name:    "nothing configured",
			wantErr: ErrConfigMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := Resolve(tt.override, tt.companyDefault)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resolved.Center != *tt.wantCenter {
				t.Errorf("Center = %v, want %v", resolved.Center, *tt.wantCenter)
			}
			if resolved.RadiusM != tt.wantRadius {
				t.Errorf("RadiusM = %v, want %v", resolved.RadiusM, tt.wantRadius)
			}
		})
	}
}

func TestValidateRadius(t *testing.T) {
	valid := []float64{10, 100, 500, 1000}
	for _, r := range valid {
		if err := ValidateRadius(r); err != nil {
			t.Errorf("ValidateRadius(%v) = %v, want nil", r, err)
		}
	}

	invalid := []float64{0, 9.99, -5, 1000.01, 5000}
	for _, r := range invalid {
		if err := ValidateRadius(r); err == nil {
			t.Errorf("ValidateRadius(%v) = nil, want error", r)
		}
	}
}
