package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFirstNonFlagArg(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "skips leading flags",
			args: []string{"--flag", "unknown-cmd"},
			want: "unknown-cmd",
		},
		{
			name: "all flags",
			args: []string{"-h", "--help"},
			want: "",
		},
		{
			name: "finds command after help",
			args: []string{"--help", "render"},
			want: "render",
		},
		{
			name: "no args",
			args: nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstNonFlagArg(tt.args); got != tt.want {
				t.Errorf("firstNonFlagArg(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "monitor", "render", "config"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered: %v", name, err)
		}
	}

	set, _, err := rootCmd.Find([]string{"config", "set"})
	if err != nil || set.Flags().Lookup("fade-ms") == nil {
		t.Errorf("config set should expose --fade-ms: %v", err)
	}
	if monitorCmd.Flags().Lookup("port") == nil {
		t.Error("monitor should share the serve listener flags")
	}
}

func TestResolveBaseDir(t *testing.T) {
	flagDir := t.TempDir()
	envDir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		flag, env string
		want      string
		wantErr   bool
	}{
		{name: "flag wins", flag: flagDir, env: envDir, want: flagDir},
		{name: "env fallback", env: envDir, want: envDir},
		{name: "working dir", want: wd},
		{name: "missing dir", flag: filepath.Join(flagDir, "nope"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveBaseDir(tt.flag, tt.env)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("resolveBaseDir = %q, want %q", got, tt.want)
			}
		})
	}
}
