package plugins

import (
	"context"
	"testing"
)

type handlers struct{}

func (handlers) onReady(ctx context.Context) error { return nil }

func TestShortFuncName(t *testing.T) {
	tests := []struct {
		ident string
		want  string
	}{
		{"github.com/keshon/discord-plugins/pkg/plugins.onPing", "onPing"},
		{"github.com/x/y.(*T).onPing-fm", "onPing"},
		{"main.handlers.onReady-fm", "onReady"},
		{"main.init.func1", ""},
		{"github.com/x/y.TestFoo.func2.1", ""},
	}
	for _, tt := range tests {
		if got := shortFuncName(tt.ident); got != tt.want {
			t.Errorf("shortFuncName(%q) = %q, want %q", tt.ident, got, tt.want)
		}
	}
}

func TestMethodValueName(t *testing.T) {
	cb, err := newCallback(handlers{}.onReady)
	if err != nil {
		t.Fatalf("newCallback: %v", err)
	}
	if got := cb.Name(); got != "onReady" {
		t.Errorf("Name = %q, want onReady", got)
	}
}

func TestMergeAttrs(t *testing.T) {
	defaults := CommandAttrs{Hidden: Ptr(true), Aliases: []string{"p"}, Help: Ptr("default")}
	got := mergeCommandAttrs(defaults,
		CommandAttrs{Hidden: Ptr(false)},
		CommandAttrs{Aliases: []string{}},
	)

	if *got.Hidden {
		t.Errorf("explicit false did not override the default")
	}
	if got.Aliases == nil || len(got.Aliases) != 0 {
		t.Errorf("empty aliases did not override: %v", got.Aliases)
	}
	if *got.Help != "default" {
		t.Errorf("unset Help overrode the default: %q", *got.Help)
	}
}

func TestOwnedExtrasKeepsExplicitKeys(t *testing.T) {
	p := New("test")
	in := map[string]any{ExtraPlugin: "mine"}
	out := ownedExtras(in, p)

	if out[ExtraPlugin] != "mine" {
		t.Errorf("extras[plugin] overwritten: %v", out[ExtraPlugin])
	}
	if out[ExtraMetadata] != p.Metadata() {
		t.Errorf("extras[metadata] = %v", out[ExtraMetadata])
	}
	if _, ok := in[ExtraMetadata]; ok {
		t.Errorf("input map was modified")
	}
}
