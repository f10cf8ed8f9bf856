package headless

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestTextMatchXPath(t *testing.T) {
	t.Parallel()

	got := textMatchXPath("Pingo Doce")
	if !strings.Contains(got, "'pingo doce'") {
		t.Fatalf("expected lowercased needle in expression, got %q", got)
	}
	if !strings.Contains(got, "translate(text()") {
		t.Fatalf("expected case-folding translate call, got %q", got)
	}
}

func TestTextMatchXPathStripsQuotes(t *testing.T) {
	t.Parallel()

	got := textMatchXPath("o'reilly")
	if strings.Contains(got, "o'reilly") {
		t.Fatalf("expected single quotes stripped from needle, got %q", got)
	}
}

func TestNewFactoryRequiresProfileDir(t *testing.T) {
	t.Parallel()

	if _, err := NewFactory(Config{}, zap.NewNop()); err == nil {
		t.Fatal("expected error for missing profile dir")
	}
}

func TestNewFactoryCreatesProfileDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir() + "/profile"
	f, err := NewFactory(Config{ProfileDir: dir}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFactory() error = %v", err)
	}
	if f == nil {
		t.Fatal("expected factory")
	}
}
