package tui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/carmatch/flowadmin/internal/flowview"
)

func TestMinimalTableStyles_AreTextFirst(t *testing.T) {
	s := minimalTableStyles()

	var wantNoColor lipgloss.TerminalColor = lipgloss.NoColor{}
	if got := s.Selected.GetBackground(); got != wantNoColor {
		t.Fatalf("expected selected row background to be unset (%T), got %T", wantNoColor, got)
	}
	if !s.Selected.GetBold() {
		t.Fatalf("expected selected row to be bold")
	}
}

func TestBannerStyle_FollowsKind(t *testing.T) {
	var wantDanger lipgloss.TerminalColor = dangerColor
	if got := bannerStyle(flowview.StatusDanger).GetForeground(); got != wantDanger {
		t.Fatalf("expected danger foreground %v, got %v", wantDanger, got)
	}
	var wantSuccess lipgloss.TerminalColor = successColor
	if got := bannerStyle(flowview.StatusSuccess).GetForeground(); got != wantSuccess {
		t.Fatalf("expected success foreground %v, got %v", wantSuccess, got)
	}
	if bannerStyle(flowview.StatusInfo).GetBold() {
		t.Fatalf("expected info banner not to be bold")
	}
}
