package plugins

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/discord-plugins/pkg/jobmgr"
	"github.com/keshon/discord-plugins/pkg/tasks"
)

func onPing(ctx context.Context) error { return nil }

func onPong(ctx context.Context) error { return nil }

func onMessageCreate(ctx context.Context, m *discordgo.MessageCreate) error { return nil }

func noop(ctx context.Context) error { return nil }

func allow(ctx context.Context, inv *Invocation) (bool, error) { return true, nil }

func storeSizes(p *Plugin) [4]int {
	return [4]int{len(p.Commands()), len(p.SlashCommands()), len(p.UserCommands()), len(p.MessageCommands())}
}

func TestInvalidCallbackLeavesStoreUntouched(t *testing.T) {
	bad := []struct {
		name string
		fn   any
	}{
		{"nil", nil},
		{"not a func", 42},
		{"no context", func() error { return nil }},
		{"context not first", func(s string, ctx context.Context) error { return nil }},
		{"no error result", func(ctx context.Context) {}},
		{"two results", func(ctx context.Context) (int, error) { return 0, nil }},
		{"variadic", func(ctx context.Context, args ...any) error { return nil }},
	}

	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			p := New("test")
			before := storeSizes(p)

			if _, err := p.Command("x", tc.fn); !errors.Is(err, ErrInvalidCallback) {
				t.Errorf("Command: err = %v, want ErrInvalidCallback", err)
			}
			if _, err := p.Group("x", tc.fn); !errors.Is(err, ErrInvalidCallback) {
				t.Errorf("Group: err = %v, want ErrInvalidCallback", err)
			}
			if _, err := p.SlashCommand("x", tc.fn); !errors.Is(err, ErrInvalidCallback) {
				t.Errorf("SlashCommand: err = %v, want ErrInvalidCallback", err)
			}
			if _, err := p.UserCommand("x", tc.fn); !errors.Is(err, ErrInvalidCallback) {
				t.Errorf("UserCommand: err = %v, want ErrInvalidCallback", err)
			}
			if _, err := p.MessageCommand("x", tc.fn); !errors.Is(err, ErrInvalidCallback) {
				t.Errorf("MessageCommand: err = %v, want ErrInvalidCallback", err)
			}

			if after := storeSizes(p); after != before {
				t.Errorf("store sizes = %v, want %v", after, before)
			}
		})
	}
}

func TestNameInference(t *testing.T) {
	p := New("test")

	cmd, err := p.SlashCommand("", onPing)
	if err != nil {
		t.Fatalf("SlashCommand: %v", err)
	}
	if cmd.Name != "onPing" {
		t.Errorf("Name = %q, want onPing", cmd.Name)
	}

	_, err = p.SlashCommand("", func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrNameRequired) {
		t.Errorf("closure without name: err = %v, want ErrNameRequired", err)
	}
}

func TestOverwriteByName(t *testing.T) {
	p := New("test")

	first, err := p.SlashCommand("ping", onPing)
	if err != nil {
		t.Fatalf("SlashCommand: %v", err)
	}
	second, err := p.SlashCommand("ping", onPong)
	if err != nil {
		t.Fatalf("SlashCommand: %v", err)
	}

	if got := len(p.SlashCommands()); got != 1 {
		t.Fatalf("len(SlashCommands) = %d, want 1", got)
	}
	got, err := p.GetSlashCommand("ping")
	if err != nil {
		t.Fatalf("GetSlashCommand: %v", err)
	}
	if got != SlashNode(second) || got == SlashNode(first) {
		t.Errorf("GetSlashCommand returned the first entity")
	}

	c1, _ := p.Command("ping", onPing)
	c2, _ := p.Command("ping", onPong)
	if cmd, _ := p.GetCommand("ping"); cmd != PrefixCommand(c2) || cmd == PrefixCommand(c1) {
		t.Errorf("GetCommand did not return the second command")
	}
}

func TestAttrsMerge(t *testing.T) {
	p := New("test", WithSlashCommandAttrs(SlashCommandAttrs{
		AppCommandAttrs: AppCommandAttrs{GuildIDs: []string{"1"}, DMPermission: Ptr(true)},
	}))

	ping, err := p.SlashCommand("ping", onPing)
	if err != nil {
		t.Fatalf("SlashCommand: %v", err)
	}
	pong, err := p.SlashCommand("pong", onPong, SlashCommandAttrs{
		AppCommandAttrs: AppCommandAttrs{GuildIDs: []string{"2"}, DMPermission: Ptr(false)},
	})
	if err != nil {
		t.Fatalf("SlashCommand: %v", err)
	}

	bot := newFakeBot()
	if err := p.Load(context.Background(), bot); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := bot.slash["ping"].GuildIDs; !slices.Equal(got, []string{"1"}) {
		t.Errorf("ping GuildIDs = %v, want [1]", got)
	}
	if got := bot.slash["pong"].GuildIDs; !slices.Equal(got, []string{"2"}) {
		t.Errorf("pong GuildIDs = %v, want [2]", got)
	}
	if *ping.DMPermission != true || *pong.DMPermission != false {
		t.Errorf("DMPermission = %v/%v, want true/false", *ping.DMPermission, *pong.DMPermission)
	}
	if ping.Description != "-" {
		t.Errorf("default Description = %q, want -", ping.Description)
	}
}

func TestExtrasCarryOwner(t *testing.T) {
	p := New("test")
	cmd, err := p.Command("ping", onPing, CommandAttrs{Extras: map[string]any{"k": "v"}})
	if err != nil {
		t.Fatalf("Command: %v", err)
	}

	owner, err := ParentPlugin(cmd)
	if err != nil {
		t.Fatalf("ParentPlugin: %v", err)
	}
	if owner != Owner(p) {
		t.Errorf("ParentPlugin = %v, want %v", owner, p)
	}
	if cmd.Extras[ExtraMetadata] != p.Metadata() {
		t.Errorf("extras[metadata] is not the plugin metadata")
	}
	if cmd.Extras["k"] != "v" {
		t.Errorf("user extras lost: %v", cmd.Extras)
	}

	if _, err := ParentPlugin(&Command{}); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("ParentPlugin on a bare command = %v, want ErrNotRegistered", err)
	}
}

func TestLoadUnloadRoundTrip(t *testing.T) {
	p := New("test")
	mustOK(t, p.AddListeners("MESSAGE_CREATE", onMessageCreate, onMessageCreate))
	mustOK(t, p.AddListeners("", onPing))
	_, err := p.Command("ping", onPing)
	mustOK(t, err)
	_, err = p.SlashCommand("ping", onPing)
	mustOK(t, err)
	_, err = p.UserCommand("inspect", onPing)
	mustOK(t, err)
	_, err = p.MessageCommand("quote", onPing)
	mustOK(t, err)
	loop := tasks.NewLoop("tick", time.Hour, noop)
	_, err = p.RegisterLoop(loop, false)
	mustOK(t, err)

	if p.State() != StateUnbound {
		t.Fatalf("State before load = %v", p.State())
	}
	if _, err := p.Bot(); !errors.Is(err, ErrUnbound) {
		t.Fatalf("Bot before load = %v, want ErrUnbound", err)
	}

	bot := newFakeBot()
	if err := p.Load(context.Background(), bot); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loop.IsRunning() {
		t.Errorf("loop not running after load")
	}
	wantLoad := []string{
		"add command ping",
		"add slash ping",
		"add user inspect",
		"add message quote",
		"add listener MESSAGE_CREATE",
		"add listener MESSAGE_CREATE",
		"add listener onPing",
		"sync",
	}
	if got := bot.Calls(); !slices.Equal(got, wantLoad) {
		t.Fatalf("load calls = %v\nwant %v", got, wantLoad)
	}

	if err := p.Unload(context.Background(), bot); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	select {
	case <-loop.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("loop still running after unload")
	}

	wantUnload := []string{
		"remove command ping",
		"remove slash ping",
		"remove user inspect",
		"remove message quote",
		"remove listener MESSAGE_CREATE",
		"remove listener MESSAGE_CREATE",
		"remove listener onPing",
		"sync",
	}
	if got := bot.Calls()[len(wantLoad):]; !slices.Equal(got, wantUnload) {
		t.Fatalf("unload calls = %v\nwant %v", got, wantUnload)
	}
	for event, ls := range bot.listeners {
		if len(ls) != 0 {
			t.Errorf("listeners for %s left after unload: %d", event, len(ls))
		}
	}
	if len(bot.commands)+len(bot.slash)+len(bot.user)+len(bot.message) != 0 {
		t.Errorf("commands left after unload")
	}

	if p.State() != StateBound {
		t.Errorf("State after unload = %v, want bound", p.State())
	}
	if got, _ := p.Bot(); got != Bot(bot) {
		t.Errorf("Bot after unload is not the loaded bot")
	}
}

func TestPrefixCommandsSkippedWithoutPrefixBot(t *testing.T) {
	p := New("test")
	_, err := p.Command("ping", onPing)
	mustOK(t, err)
	_, err = p.SlashCommand("ping", onPing)
	mustOK(t, err)

	fb := newFakeBot()
	if err := p.Load(context.Background(), appOnlyBot{fb}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"add slash ping", "sync"}
	if got := fb.Calls(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestCheckOrderAcrossReloads(t *testing.T) {
	var order []string
	named := func(name string) Check {
		return func(ctx context.Context, inv *Invocation) (bool, error) {
			order = append(order, name)
			return true, nil
		}
	}

	p := New("test")
	p.CommandCheck(named("A"))
	p.CommandCheck(named("B"))
	cmd, err := p.Command("ping", onPing)
	mustOK(t, err)
	cmd.AddCheck(named("C"))

	bot := newFakeBot()
	for i := 0; i < 2; i++ {
		mustOK(t, p.Load(context.Background(), bot))

		order = nil
		for _, check := range cmd.EffectiveChecks() {
			if _, err := check(context.Background(), &Invocation{Name: "ping"}); err != nil {
				t.Fatalf("check: %v", err)
			}
		}
		if want := []string{"A", "B", "C"}; !slices.Equal(order, want) {
			t.Errorf("load %d: check order = %v, want %v", i+1, order, want)
		}
		if len(cmd.Checks) != 1 {
			t.Errorf("load %d: own checks = %d, want 1", i+1, len(cmd.Checks))
		}
		mustOK(t, p.Unload(context.Background(), bot))
	}
}

func TestHookStages(t *testing.T) {
	p := New("test")
	_, err := p.SlashCommand("ping", onPing)
	mustOK(t, err)

	bot := newFakeBot()
	var seen [][]string
	p.LoadHook(false, func(ctx context.Context) error {
		seen = append(seen, bot.Calls())
		return nil
	})
	p.LoadHook(true, func(ctx context.Context) error {
		seen = append(seen, bot.Calls())
		return nil
	})

	mustOK(t, p.Load(context.Background(), bot))
	if len(seen) != 2 {
		t.Fatalf("hooks ran %d times, want 2", len(seen))
	}
	if len(seen[0]) != 0 {
		t.Errorf("pre-load hook saw %v, want no calls", seen[0])
	}
	if want := []string{"add slash ping"}; !slices.Equal(seen[1], want) {
		t.Errorf("post-load hook saw %v, want %v", seen[1], want)
	}
}

func TestLoadStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	p := New("test")
	_, err := p.SlashCommand("ping", onPing)
	mustOK(t, err)
	p.LoadHook(false, func(ctx context.Context) error { return boom })

	bot := newFakeBot()
	err = p.Load(context.Background(), bot)
	if !errors.Is(err, boom) {
		t.Fatalf("Load = %v, want boom", err)
	}
	if got := bot.Calls(); len(got) != 0 {
		t.Errorf("calls after failed pre-load hook = %v", got)
	}
	if p.State() != StateBound {
		t.Errorf("bot handle not stored before hooks ran")
	}

	p2 := New("test")
	_, err = p2.SlashCommand("a", onPing)
	mustOK(t, err)
	_, err = p2.SlashCommand("b", onPing)
	mustOK(t, err)
	bot2 := newFakeBot()
	bot2.failOn = "add slash a"
	if err := p2.Load(context.Background(), bot2); err == nil {
		t.Fatalf("Load succeeded with a failing host")
	}
	if want := []string{"add slash a"}; !slices.Equal(bot2.Calls(), want) {
		t.Errorf("calls = %v, want %v", bot2.Calls(), want)
	}
}

func TestRegisterLoopConflictingHook(t *testing.T) {
	p := New("test")

	loop := tasks.NewLoop("status", time.Hour, noop)
	if _, err := p.RegisterLoop(loop, true); err != nil {
		t.Fatalf("RegisterLoop: %v", err)
	}
	if _, err := p.RegisterLoop(loop, true); !errors.Is(err, ErrConflictingHook) {
		t.Errorf("second RegisterLoop = %v, want ErrConflictingHook", err)
	}

	own := tasks.NewLoop("own", time.Hour, noop)
	called := false
	own.BeforeLoop(func(ctx context.Context) error {
		called = true
		return nil
	})
	if _, err := p.RegisterLoop(own, true); !errors.Is(err, ErrConflictingHook) {
		t.Errorf("RegisterLoop on a hooked loop = %v, want ErrConflictingHook", err)
	}
	if len(p.Loops()) != 1 {
		t.Errorf("len(Loops) = %d, want 1", len(p.Loops()))
	}

	mustOK(t, own.Start(context.Background()))
	own.Cancel()
	<-own.Done()
	if !called {
		t.Errorf("the loop's own before-loop hook was replaced")
	}
}

func TestRegisterLoopWaitsUntilReady(t *testing.T) {
	p := New("test")
	ran := make(chan struct{}, 1)
	loop := tasks.NewLoop("status", time.Hour, func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	}, tasks.WithCount(1))
	_, err := p.RegisterLoop(loop, true)
	mustOK(t, err)

	bot := newFakeBot()
	bot.ready = make(chan struct{})
	mustOK(t, p.Load(context.Background(), bot))

	select {
	case <-ran:
		t.Fatalf("loop ran before the bot was ready")
	case <-time.After(20 * time.Millisecond):
	}
	close(bot.ready)
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatalf("loop did not run once the bot was ready")
	}
}

func TestGetCommandWalksGroups(t *testing.T) {
	p := New("test")
	tag, err := p.Group("tag", onPing)
	mustOK(t, err)
	create, err := tag.Subcommand("create", onPing, CommandAttrs{Aliases: []string{"new"}})
	mustOK(t, err)

	if got, _ := p.GetCommand("tag create"); got != PrefixCommand(create) {
		t.Errorf("GetCommand(tag create) = %v", got)
	}
	if got, _ := p.GetCommand("tag new"); got != PrefixCommand(create) {
		t.Errorf("GetCommand(tag new) = %v", got)
	}
	if create.QualifiedName() != "tag create" {
		t.Errorf("QualifiedName = %q", create.QualifiedName())
	}
	if got, err := p.GetCommand("tag missing"); got != nil || err != nil {
		t.Errorf("GetCommand(tag missing) = %v, %v", got, err)
	}
	if _, err := p.GetCommand("tag create extra"); !errors.Is(err, ErrNotGroup) {
		t.Errorf("GetCommand through a leaf = %v, want ErrNotGroup", err)
	}
	if _, err := ParentPlugin(create); err != nil {
		t.Errorf("subcommand lost its owner: %v", err)
	}
}

func TestCustomCommand(t *testing.T) {
	type hiddenCmd struct{ *Command }

	p := New("test")
	cmd, err := CustomCommand(p, "secret", onPing, func(c *Command) hiddenCmd {
		c.Hidden = true
		return hiddenCmd{c}
	})
	mustOK(t, err)
	if !cmd.Hidden {
		t.Errorf("class did not run")
	}
	if got, _ := p.GetCommand("secret"); got != PrefixCommand(cmd) {
		t.Errorf("GetCommand returned %v", got)
	}
}

func TestSlashCommandTree(t *testing.T) {
	p := New("test")
	manage, err := p.SlashCommand("manage", noop)
	mustOK(t, err)
	roles, err := manage.SubCommandGroup("roles", noop)
	mustOK(t, err)
	add, err := roles.SubCommand("add", noop, SubCommandAttrs{
		Options: []*discordgo.ApplicationCommandOption{{
			Type: discordgo.ApplicationCommandOptionString,
			Name: "role",
		}},
	})
	mustOK(t, err)

	if got, _ := p.GetSlashCommand("manage roles add"); got != SlashNode(add) {
		t.Errorf("GetSlashCommand = %v", got)
	}
	if add.QualifiedName() != "manage roles add" {
		t.Errorf("QualifiedName = %q", add.QualifiedName())
	}
	if add.RootParent() != manage {
		t.Errorf("RootParent is not manage")
	}

	def := manage.Definition()
	if def.Type != discordgo.ChatApplicationCommand || len(def.Options) != 1 {
		t.Fatalf("definition = %+v", def)
	}
	group := def.Options[0]
	if group.Type != discordgo.ApplicationCommandOptionSubCommandGroup || group.Options[0].Name != "add" {
		t.Errorf("group option = %+v", group)
	}

	if err := add.Autocomplete("missing", nil); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("Autocomplete(missing) = %v, want ErrUnknownOption", err)
	}
	mustOK(t, add.Autocomplete("role", func(ctx context.Context, inv *Invocation, value string) ([]*discordgo.ApplicationCommandOptionChoice, error) {
		return nil, nil
	}))
	if !manage.Definition().Options[0].Options[0].Options[0].Autocomplete {
		t.Errorf("option not marked autocomplete in the definition")
	}
}

func TestContextMenuDefinitions(t *testing.T) {
	p := New("test")
	u, err := p.UserCommand("Inspect", noop)
	mustOK(t, err)
	m, err := p.MessageCommand("Quote", noop, AppCommandAttrs{NSFW: Ptr(true)})
	mustOK(t, err)

	if got := u.Definition().Type; got != discordgo.UserApplicationCommand {
		t.Errorf("user definition type = %v", got)
	}
	def := m.Definition()
	if def.Type != discordgo.MessageApplicationCommand || def.NSFW == nil || !*def.NSFW {
		t.Errorf("message definition = %+v", def)
	}
}

func TestInvokePassesDeclaredArgs(t *testing.T) {
	var got string
	p := New("test")
	cmd, err := p.Command("echo", func(ctx context.Context, s string) error {
		got = s
		return nil
	})
	mustOK(t, err)

	mustOK(t, cmd.Invoke(context.Background(), "hi", "ignored"))
	if got != "hi" {
		t.Errorf("got %q, want hi", got)
	}
	if err := cmd.Invoke(context.Background(), 5); !errors.Is(err, ErrArgumentMismatch) {
		t.Errorf("Invoke(5) = %v, want ErrArgumentMismatch", err)
	}
	if err := cmd.Invoke(context.Background()); !errors.Is(err, ErrArgumentMismatch) {
		t.Errorf("Invoke() = %v, want ErrArgumentMismatch", err)
	}
}

func TestExtensionHandlers(t *testing.T) {
	p := New("test")
	_, err := p.SlashCommand("ping", onPing)
	mustOK(t, err)

	bot := newFakeBot()
	ext := p.Extension()
	if ext.Name != "test" {
		t.Errorf("Extension.Name = %q", ext.Name)
	}

	ext.Setup(bot)
	jobmgr.DefaultManager.Wait()
	if _, ok := bot.slash["ping"]; !ok {
		t.Fatalf("setup did not load the plugin")
	}

	ext.Teardown(bot)
	jobmgr.DefaultManager.Wait()
	if _, ok := bot.slash["ping"]; ok {
		t.Errorf("teardown did not unload the plugin")
	}
}

func TestMetadataKeys(t *testing.T) {
	p := New("test", WithExtras(map[string]any{"category": "fun"}))
	if got := p.Metadata().Category(); got != "fun" {
		t.Errorf("Category = %q, want fun", got)
	}

	color := NewKey[int]("color")
	if _, ok := GetExtra(p, color); ok {
		t.Errorf("GetExtra found a missing key")
	}
	SetExtra(p, color, 0xff)
	if got, ok := GetExtra(p, color); !ok || got != 0xff {
		t.Errorf("GetExtra = %d, %v", got, ok)
	}
	DeleteExtra(p, color)
	if _, ok := p.Metadata().Extras["color"]; ok {
		t.Errorf("DeleteExtra left the key")
	}
}

func TestUnnamedPlugin(t *testing.T) {
	if got := New("").Name(); got != "plugin" {
		t.Errorf("Name = %q, want plugin", got)
	}
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReloadWithLoop(t *testing.T) {
	p := New("test")
	loop := tasks.NewLoop("tick", time.Hour, noop)
	loop.AfterLoop(func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	_, err := p.RegisterLoop(loop, false)
	mustOK(t, err)

	bot := newFakeBot()
	for i := range 3 {
		if err := p.Load(context.Background(), bot); err != nil {
			t.Fatalf("Load #%d: %v", i+1, err)
		}
		if !loop.IsRunning() {
			t.Fatalf("loop not running after load #%d", i+1)
		}
		if err := p.Unload(context.Background(), bot); err != nil {
			t.Fatalf("Unload #%d: %v", i+1, err)
		}
		if loop.IsRunning() {
			t.Fatalf("loop still running after unload #%d returned", i+1)
		}
	}
}

func TestUnloadStopsLoopWithinContext(t *testing.T) {
	p := New("test")
	loop := tasks.NewLoop("stuck", time.Hour, noop)
	release := make(chan struct{})
	defer close(release)
	loop.AfterLoop(func(ctx context.Context) error {
		<-release
		return nil
	})
	_, err := p.RegisterLoop(loop, false)
	mustOK(t, err)

	bot := newFakeBot()
	mustOK(t, p.Load(context.Background(), bot))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Unload(ctx, bot); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Unload with a stuck after-hook = %v, want DeadlineExceeded", err)
	}
}

func TestRegisterLoopTwice(t *testing.T) {
	p := New("test")
	loop := tasks.NewLoop("tick", time.Hour, noop)
	_, err := p.RegisterLoop(loop, false)
	mustOK(t, err)
	got, err := p.RegisterLoop(loop, false)
	mustOK(t, err)
	if got != loop {
		t.Errorf("second RegisterLoop returned a different loop")
	}
	if n := len(p.Loops()); n != 1 {
		t.Fatalf("plugin has %d loops, want 1", n)
	}

	bot := newFakeBot()
	if err := p.Load(context.Background(), bot); err != nil {
		t.Fatalf("Load with a loop registered twice: %v", err)
	}
	mustOK(t, p.Unload(context.Background(), bot))
}
