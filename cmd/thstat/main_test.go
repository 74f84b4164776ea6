package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stmobo/thstat-sub001/internal/config"
	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/model"
	"github.com/stmobo/thstat-sub001/internal/store"
)

func TestDefaultConfigTemplateParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("template should parse: %v", err)
	}
	if cfg.Watch.Realtime != nil || cfg.Stats.Game != nil {
		t.Fatalf("template values should be commented out: %+v", cfg)
	}

	uncommented := strings.NewReplacer("# init-delay-ms", "init-delay-ms", "# min-attempt-secs", "min-attempt-secs").
		Replace(defaultConfigTemplate())
	if err := os.WriteFile(path, []byte(uncommented), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err = config.LoadConfig(path)
	if err != nil {
		t.Fatalf("uncommented template should parse: %v", err)
	}
	if cfg.Watch.InitDelayMs == nil || *cfg.Watch.InitDelayMs != defaultInitDelayMs {
		t.Fatalf("unexpected init delay %+v", cfg.Watch.InitDelayMs)
	}
	if cfg.Stats.MinAttemptSecs == nil || *cfg.Stats.MinAttemptSecs != defaultMinAttemptSecs {
		t.Fatalf("unexpected min attempt %+v", cfg.Stats.MinAttemptSecs)
	}
}

func TestBuildStatsConfig(t *testing.T) {
	cfg, err := buildStatsConfig("TH07", "reimua", "hard", "2024-06-01", 5, 4, 1.5, 3)
	if err != nil {
		t.Fatalf("buildStatsConfig failed: %v", err)
	}
	if cfg.Game != model.GameTH07 || cfg.Shot != "ReimuA" || cfg.Difficulty != model.DifficultyHard {
		t.Fatalf("unexpected filters %+v", cfg)
	}
	if cfg.MinAttempt != 1500*time.Millisecond || cfg.Since == nil || cfg.Last != 5 {
		t.Fatalf("unexpected options %+v", cfg)
	}

	bad := []struct {
		name string
		run  func() error
	}{
		{"shot without game", func() error {
			_, err := buildStatsConfig("", "ReimuA", "", "", 0, 4, 0, 0)
			return err
		}},
		{"unknown game", func() error {
			_, err := buildStatsConfig("th99", "", "", "", 0, 4, 0, 0)
			return err
		}},
		{"bad since", func() error {
			_, err := buildStatsConfig("", "", "", "June", 0, 4, 0, 0)
			return err
		}},
		{"zero window", func() error {
			_, err := buildStatsConfig("", "", "", "", 0, 0, 0, 0)
			return err
		}},
		{"negative min attempt", func() error {
			_, err := buildStatsConfig("", "", "", "", 0, 4, -1, 0)
			return err
		}},
	}
	for _, tc := range bad {
		if tc.run() == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestParseGroupRange(t *testing.T) {
	p, err := game.Lookup("th07")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	low, high, err := parseGroupRange(p, "3", " 1 ")
	if err != nil {
		t.Fatalf("parseGroupRange failed: %v", err)
	}
	first, _ := p.Catalog().Group(1)
	last, _ := p.Catalog().Group(3)
	if low != first.Min() || high != last.Max() {
		t.Fatalf("unexpected bounds %v..%v", low, high)
	}
	if _, _, err := parseGroupRange(p, "x", "1"); err == nil {
		t.Fatalf("expected error for non-numeric group")
	}
	if _, _, err := parseGroupRange(p, "0", "100000"); !errors.Is(err, game.ErrUnknownLocation) {
		t.Fatalf("expected ErrUnknownLocation, got %v", err)
	}
}

func TestParseGameList(t *testing.T) {
	games, err := parseGameList("th08, TH07,th08")
	if err != nil {
		t.Fatalf("parseGameList failed: %v", err)
	}
	if len(games) != 2 || games[0].ID() != model.GameTH08 || games[1].ID() != model.GameTH07 {
		t.Fatalf("unexpected games %v", games)
	}
	if _, err := parseGameList(" , "); err == nil {
		t.Fatalf("expected error for empty list")
	}
}

func TestWatchSourcesSimulated(t *testing.T) {
	sources, err := watchSources(nil, "th07,th10", false)
	if err != nil {
		t.Fatalf("watchSources failed: %v", err)
	}
	if len(sources) != 2 || sources[0].Name != "sim:th07" || sources[1].Name != "sim:th10" {
		t.Fatalf("unexpected sources %+v", sources)
	}
	for _, src := range sources {
		if len(src.Ticks) == 0 {
			t.Fatalf("source %s has no readings", src.Name)
		}
	}
	if _, err := watchSources([]string{"a.jsonl"}, "th07", false); err == nil {
		t.Fatalf("expected error when mixing traces and simulation")
	}
	if _, err := watchSources(nil, "", false); err == nil {
		t.Fatalf("expected error without sources")
	}
}

func TestRenderRanges(t *testing.T) {
	var buf bytes.Buffer
	if err := renderRanges(&buf, nil); err != nil {
		t.Fatalf("renderRanges failed: %v", err)
	}
	if !strings.Contains(buf.String(), "every location") {
		t.Fatalf("unexpected output %q", buf.String())
	}

	p, _ := game.Lookup("th07")
	g, _ := p.Catalog().Group(2)
	buf.Reset()
	stored := map[model.GameID]store.IndexRange{model.GameTH07: {Low: g.Min().Index, High: g.Max().Index}}
	if err := renderRanges(&buf, stored); err != nil {
		t.Fatalf("renderRanges failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "th07: ") || !strings.Contains(buf.String(), g.Name) {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Fatalf("unexpected short id %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Fatalf("unexpected short id %q", got)
	}
}
