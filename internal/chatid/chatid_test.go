package chatid

import "testing"

func TestDirect_OrderIndependent(t *testing.T) {
	// 单聊 ID 与发起方无关
	ab := Direct("2211001", "2211002")
	ba := Direct("2211002", "2211001")

	if ab != ba {
		t.Errorf("Expected identical ids, got %q and %q", ab, ba)
	}
	if ab != "2211001--2211002" {
		t.Errorf("Expected '2211001--2211002', got %q", ab)
	}
}

func TestIsDirect(t *testing.T) {
	cases := []struct {
		chatID string
		want   bool
	}{
		{"u1--u2", true},
		{"campus-lounge", false},
		{"1857392847563", false},
		{"", false},
	}

	for _, c := range cases {
		if got := IsDirect(c.chatID); got != c.want {
			t.Errorf("IsDirect(%q) = %v, want %v", c.chatID, got, c.want)
		}
	}
}

func TestParticipants(t *testing.T) {
	a, b, ok := Participants("u1--u2")
	if !ok {
		t.Fatal("Expected valid direct chat id")
	}
	if a != "u1" || b != "u2" {
		t.Errorf("Expected participants u1/u2, got %q/%q", a, b)
	}

	// 残缺的复合 ID 不合法
	if _, _, ok := Participants("u1--"); ok {
		t.Error("Expected 'u1--' to be rejected")
	}
	if _, _, ok := Participants("--u2"); ok {
		t.Error("Expected '--u2' to be rejected")
	}
	if _, _, ok := Participants("group-id"); ok {
		t.Error("Expected plain id to be rejected")
	}
}

func TestIsParticipant(t *testing.T) {
	chatID := Direct("u1", "u2")

	if !IsParticipant(chatID, "u1") {
		t.Error("u1 should be a participant")
	}
	if !IsParticipant(chatID, "u2") {
		t.Error("u2 should be a participant")
	}
	if IsParticipant(chatID, "u3") {
		t.Error("u3 should not be a participant")
	}
}
