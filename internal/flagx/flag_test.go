package flagx

import (
	"reflect"
	"testing"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-d", "dsn", "-a", "localhost"},
			allowedFlags: []string{"-d", "--dsn"},
			want:         []string{"-d", "dsn"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--dsn=alt", "-a", "localhost"},
			allowedFlags: []string{"-d", "--dsn"},
			want:         []string{"--dsn=alt"},
		},
		{
			name:         "both short and long present, preserve order",
			args:         []string{"--dsn=first", "-d", "second", "-x", "1"},
			allowedFlags: []string{"-d", "--dsn"},
			want:         []string{"--dsn=first", "-d", "second"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-d", "--dsn"},
			want:         []string{},
		},
		{
			name:         "flag without value at end is kept as-is",
			args:         []string{"-d"},
			allowedFlags: []string{"-d", "--dsn"},
			want:         []string{"-d"},
		},
		{
			name:         "flag followed by another flag (no value)",
			args:         []string{"-d", "-notvalue"},
			allowedFlags: []string{"-d", "--dsn"},
			want:         []string{"-d"},
		},
		{
			name:         "multiple allowed flags kept",
			args:         []string{"-a", "localhost:8080", "-d", "dsn", "--other", "x"},
			allowedFlags: []string{"-d", "-a"},
			want:         []string{"-a", "localhost:8080", "-d", "dsn"},
		},
		{
			name:         "empty args",
			args:         []string{},
			allowedFlags: []string{"-d"},
			want:         []string{},
		},
		{
			name:         "repeated allowed flag is preserved in order",
			args:         []string{"-d", "one", "-d", "two"},
			allowedFlags: []string{"-d"},
			want:         []string{"-d", "one", "-d", "two"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowedFlags)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FilterArgs() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
