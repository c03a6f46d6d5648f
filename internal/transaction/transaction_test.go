package transaction

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kevink2022/Boomic-sub000/internal/assertion"
	"github.com/kevink2022/Boomic-sub000/internal/model"
)

func TestNew_Significance(t *testing.T) {
	track := assertion.UpdateTrack(uuid.New(), model.TrackUpdate{Rating: model.Ptr(3)})
	album := assertion.UpdateAlbum(uuid.New(), model.AlbumUpdate{Title: model.Ptr("x")})

	tests := []struct {
		name    string
		targets int
		set     assertion.Set
		want    Significance
	}{
		{"single edit", 1, assertion.NewSet(track), Normal},
		{"empty", 1, assertion.Set{}, Normal},
		{"cascade across kinds", 1, assertion.NewSet(track, album), Significant},
		{"more assertions than targets", 1, assertion.NewSet(track, assertion.Delete(assertion.KindTrack, uuid.New())), Significant},
		{"batch of direct edits", 2, assertion.NewSet(track, assertion.Delete(assertion.KindTrack, uuid.New())), Normal},
	}
	for _, tt := range tests {
		if got := New("edit", tt.targets, tt.set).Significance; got != tt.want {
			t.Errorf("%s: Significance = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		names []string
		want  string
	}{
		{nil, "Delete tracks"},
		{[]string{"Sunday"}, "Delete track 'Sunday'"},
		{[]string{"Sunday", "Monday Rain", "Static"}, "Delete 3 tracks"},
	}
	for _, tt := range tests {
		if got := Label("Delete", "track", tt.names); got != tt.want {
			t.Errorf("Label(%v) = %q, want %q", tt.names, got, tt.want)
		}
	}
}

func TestNewRecord(t *testing.T) {
	before := time.Now().UTC()
	r := NewRecord(New("Update track 'Sunday'", 1, assertion.NewSet(assertion.Delete(assertion.KindTrack, uuid.New()))))
	if r.ID == uuid.Nil {
		t.Error("record has no id")
	}
	if r.Timestamp.Before(before) || r.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp = %v", r.Timestamp)
	}
	if !strings.Contains(r.String(), "(1 assertions)") {
		t.Errorf("String = %q", r.String())
	}
	if NewRecord(Transaction{}).ID == r.ID {
		t.Error("record ids repeat")
	}
}

func TestRecordJSON(t *testing.T) {
	r := NewRecord(New("Import 1 track", 1, assertion.NewSet(
		assertion.AddTrack(model.Track{ID: uuid.New(), Source: "/a.flac"}),
	)))
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.ID != r.ID || !back.Timestamp.Equal(r.Timestamp) || back.Transaction.Label != r.Transaction.Label {
		t.Errorf("decoded %+v, want %+v", back, r)
	}
	if back.Transaction.Assertions.Len() != 1 || !back.Transaction.Significance.Valid() {
		t.Errorf("decoded transaction = %+v", back.Transaction)
	}
}
