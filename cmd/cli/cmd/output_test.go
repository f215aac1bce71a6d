package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestWriteListShowsEveryKind(t *testing.T) {
	ps, err := builtin()
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := writeList(&buf, ps); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"core\n",
		"slash    /ping",
		"prefix   help",
		"loop     status",
		"listener onGuildCreate (1)",
		"manage\n",
		"slash    /manage extensions",
		"user     Command History",
		"message  Inspect Message",
		"sub      manage-sync",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("list output lacks %q:\n%s", want, out)
		}
	}
}

func TestDefinitionsIncludePlaceholders(t *testing.T) {
	pluginFilter = "manage"
	t.Cleanup(func() { pluginFilter = "" })

	var buf bytes.Buffer
	definitionsCmd.SetOut(&buf)
	if err := definitionsCmd.RunE(definitionsCmd, nil); err != nil {
		t.Fatal(err)
	}

	var defs []*discordgo.ApplicationCommand
	if err := json.Unmarshal(buf.Bytes(), &defs); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	var manage *discordgo.ApplicationCommand
	for _, d := range defs {
		if d.Name == "manage" {
			manage = d
		}
	}
	if manage == nil {
		t.Fatalf("no manage definition in %s", buf.String())
	}
	found := false
	for _, o := range manage.Options {
		if o.Name == "sync" {
			found = true
		}
	}
	if !found {
		t.Fatal("sync subcommand missing from manage definition")
	}
}

func TestBuiltinUnknownPlugin(t *testing.T) {
	pluginFilter = "nope"
	t.Cleanup(func() { pluginFilter = "" })
	if _, err := builtin(); err == nil {
		t.Fatal("want error for unknown plugin")
	}
}
