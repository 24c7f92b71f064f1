package asr

import "testing"

func TestParseDevice(t *testing.T) {
	cases := []struct {
		in     string
		expect string
		cpu    bool
	}{
		{"cpu", "cpu", true},
		{"", "cpu", true},
		{" CUDA ", "cuda", false},
		{"cuda:0", "cuda:0", false},
		{"cuda:3", "cuda:3", false},
		{"metal", "metal", false},
		{"auto", "auto", false},
	}
	for _, c := range cases {
		d, err := ParseDevice(c.in)
		if err != nil {
			t.Fatalf("ParseDevice(%q): %v", c.in, err)
		}
		if d.String() != c.expect || d.IsCPU() != c.cpu {
			t.Fatalf("ParseDevice(%q)=%s cpu=%v want %s cpu=%v", c.in, d, d.IsCPU(), c.expect, c.cpu)
		}
	}
}

func TestParseDeviceRejects(t *testing.T) {
	for _, in := range []string{"tpu", "cuda:x", "cuda:-1", "cpu:0", "mps"} {
		if _, err := ParseDevice(in); err == nil {
			t.Fatalf("ParseDevice(%q) should fail", in)
		}
	}
}
