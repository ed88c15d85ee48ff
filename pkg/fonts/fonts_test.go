package fonts

import "testing"

func TestResolveFallsBackToEmbedded(t *testing.T) {
	c := Resolve([]string{"No Such Typeface 9000"}, nil)
	if c.regular == nil || c.bold == nil {
		t.Fatal("catalog missing embedded fallback fonts")
	}
	if c.Regular(12) == nil {
		t.Fatal("nil regular face")
	}
	if c.Bold(12) == nil {
		t.Fatal("nil bold face")
	}
}

func TestFaceCaching(t *testing.T) {
	c := Resolve(nil, nil)
	f1 := c.Regular(14)
	f2 := c.Regular(14)
	if f1 != f2 {
		t.Error("same size should return the cached face")
	}
	if c.Regular(15) == f1 {
		t.Error("different sizes should not share a face")
	}
}

func TestIsPath(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Verdana", false},
		{"/usr/share/fonts/foo.ttf", true},
		{"fonts\\foo.ttf", true},
		{"foo.TTF", true},
		{"foo.otf", true},
	}
	for _, tt := range tests {
		if got := isPath(tt.in); got != tt.want {
			t.Errorf("isPath(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
