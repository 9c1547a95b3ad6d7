package telegram

import (
	"testing"

	"volleybot/pkg/logx"
)

func TestNumericChatID(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "-1001234567890", want: -1001234567890},
		{in: " 42 ", want: 42},
		{in: "@channel", wantErr: true},
		{in: "", wantErr: true},
	} {
		got, err := numericChatID(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q: got %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestNew_RejectsEmptyToken(t *testing.T) {
	if _, err := New(Config{}, logx.Nop()); err == nil {
		t.Fatal("empty token accepted")
	}
}
