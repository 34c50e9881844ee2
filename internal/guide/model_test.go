package guide

import (
	"errors"
	"testing"
	"time"
)

func TestParseChannel(t *testing.T) {
	ch, err := ParseChannel("12 Discovery Science")
	if err != nil {
		t.Fatal(err)
	}
	if ch.ID != 12 {
		t.Errorf("ID = %d", ch.ID)
	}
	if ch.Name != "Discovery Science" {
		t.Errorf("Name = %q", ch.Name)
	}
}

func TestParseChannel_malformed(t *testing.T) {
	for _, ident := range []string{"", "42", "42 ", "abc News", " News"} {
		if _, err := ParseChannel(ident); !errors.Is(err, ErrMalformedChannelIdent) {
			t.Errorf("ParseChannel(%q) err = %v, want ErrMalformedChannelIdent", ident, err)
		}
	}
}

func TestChannelEpisodesSorted(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	ch := &Channel{ID: 1, Name: "News"}
	// Insert out of time order (document order).
	ch.Add(NewEpisode("C", base.Add(2*time.Hour)))
	ch.Add(NewEpisode("A", base))
	ch.Add(NewEpisode("B", base.Add(time.Hour)))

	eps := ch.Episodes()
	want := []string{"A", "B", "C"}
	for i, ep := range eps {
		if ep.ShowTitle() != want[i] {
			t.Errorf("episode %d = %q, want %q", i, ep.ShowTitle(), want[i])
		}
	}
}

func TestChannelEpisodesSorted_stableTies(t *testing.T) {
	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	ch := &Channel{ID: 1, Name: "News"}
	ch.Add(NewEpisode("first", at))
	ch.Add(NewEpisode("second", at))

	eps := ch.Episodes()
	if eps[0].ShowTitle() != "first" || eps[1].ShowTitle() != "second" {
		t.Errorf("tie order changed: %q, %q", eps[0].ShowTitle(), eps[1].ShowTitle())
	}
}

func TestChannelEpisodes_resortsAfterAdd(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	ch := &Channel{ID: 1, Name: "News"}
	ch.Add(NewEpisode("B", base.Add(time.Hour)))
	_ = ch.Episodes()
	ch.Add(NewEpisode("A", base))

	eps := ch.Episodes()
	if eps[0].ShowTitle() != "A" {
		t.Errorf("new earlier episode not sorted in: %q", eps[0].ShowTitle())
	}
}

func TestEpisodeOptionalFields(t *testing.T) {
	ep := NewEpisode("Show", time.Now())

	if _, ok := ep.SubTitle(); ok {
		t.Error("sub-title should start absent")
	}
	if _, ok := ep.Plot(); ok {
		t.Error("plot should start absent")
	}
	if ep.EpisodeNum() != "" {
		t.Error("episode number should start empty")
	}
	if ep.HasPreview() || ep.PreviewRecorded() {
		t.Error("preview flags should start false")
	}

	ep.SetSubTitle("Pilot")
	if sub, ok := ep.SubTitle(); !ok || sub != "Pilot" {
		t.Errorf("sub-title = %q, %v", sub, ok)
	}
}

func TestEpisodePreviewFlags(t *testing.T) {
	// URL recorded but fetch failed: preview recorded, but not preview-bearing.
	ep := NewEpisode("Show", time.Now())
	ep.SetPreviewURL("http://img.example/a.jpg")
	if ep.HasPreview() {
		t.Error("URL alone must not mark the episode preview-bearing")
	}
	if !ep.PreviewRecorded() {
		t.Error("URL must count as a recorded preview")
	}

	// Replacement path: thumbnail without URL.
	ep2 := NewEpisode("Weather", time.Now())
	ep2.SetThumbnail([]byte{0xff, 0xd8})
	if !ep2.HasPreview() || !ep2.PreviewRecorded() {
		t.Error("thumbnail must set both preview flags")
	}
	if _, ok := ep2.PreviewURL(); ok {
		t.Error("replacement thumbnail must not invent a preview URL")
	}

	// Slot assignment keeps flags and index consistent.
	ep2.AssignSlot(3)
	if ep2.Slot() != 3 {
		t.Errorf("slot = %d", ep2.Slot())
	}
}
