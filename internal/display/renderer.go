package display

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/quest"
)

// Renderer updates the externally visible summary artifact for a quest.
// The artifact's visual format is owned by the implementation; the
// coordinator treats it as opaque.
type Renderer interface {
	Render(ctx context.Context, ref quest.DisplayRef, q quest.Quest) error
}

// TextRenderer is the reference renderer: it writes a plain-text summary to
// a file keyed by the display ref, one file per channel/message pair. It
// stands in for the chat-platform artifact during development and tests.
type TextRenderer struct {
	Dir string
}

func NewTextRenderer(dir string) (*TextRenderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &TextRenderer{Dir: dir}, nil
}

func (r *TextRenderer) Render(ctx context.Context, ref quest.DisplayRef, q quest.Quest) error {
	_ = ctx

	if ref.ChannelID == "" || ref.MessageID == "" {
		return fmt.Errorf("display ref is incomplete: %+v", ref)
	}

	body := FormatSummary(q)
	dir := filepath.Join(r.Dir, ref.ChannelID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, ref.MessageID+".txt")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(body), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// FormatSummary renders a deterministic text body for a quest. Participants
// are sorted by actor ID so repeated renders of the same state are
// byte-identical.
func FormatSummary(q quest.Quest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]\n", q.Title, q.Status)
	fmt.Fprintf(&b, "type: %s\n", q.Type)
	if q.Description != "" {
		fmt.Fprintf(&b, "%s\n", q.Description)
	}
	if q.Capped() {
		fmt.Fprintf(&b, "members: %d/%d\n", len(q.Participants), *q.ParticipantCap)
	} else {
		fmt.Fprintf(&b, "members: %d\n", len(q.Participants))
	}
	if q.SignupDeadline != nil {
		fmt.Fprintf(&b, "signup until: %s\n", q.SignupDeadline.UTC().Format("2006-01-02 15:04"))
	}

	ids := make([]string, 0, len(q.Participants))
	for id := range q.Participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := q.Participants[id]
		fmt.Fprintf(&b, "- %s (%s): %s", id, p.CharacterName, p.Progress)
		if p.RPPostCount > 0 {
			fmt.Fprintf(&b, ", rp posts %d", p.RPPostCount)
		}
		if p.SuccessfulRolls > 0 {
			fmt.Fprintf(&b, ", rolls %d", p.SuccessfulRolls)
		}
		if len(p.Submissions) > 0 {
			fmt.Fprintf(&b, ", submissions %d", len(p.Submissions))
		}
		b.WriteString("\n")
	}
	return b.String()
}
