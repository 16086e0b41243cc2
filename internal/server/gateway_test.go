package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"sudooom.im.campus/internal/model"
)

func TestParseSendRequest(t *testing.T) {
	// 合法请求：类型缺省
	req, err := parseSendRequest(json.RawMessage(`{"chatId":"campus-lounge","sender":"u1","content":"hi"}`))
	if err != nil {
		t.Fatalf("Expected valid request, got %v", err)
	}
	if req.ChatID != "campus-lounge" || req.Sender != "u1" || req.Content != "hi" {
		t.Errorf("Parsed request mismatch: %+v", req)
	}

	// 合法请求：显式图片类型
	req, err = parseSendRequest(json.RawMessage(`{"chatId":"g1","sender":"u1","content":"http://x/p.png","type":"image"}`))
	if err != nil {
		t.Fatalf("Expected valid image request, got %v", err)
	}
	if req.Type != model.MessageTypeImage {
		t.Errorf("Expected type image, got %q", req.Type)
	}

	// 非法请求逐项拒绝
	cases := []struct {
		name string
		data string
		want error
	}{
		{"missing chat id", `{"sender":"u1","content":"hi"}`, errEmptyChatID},
		{"missing sender", `{"chatId":"g1","content":"hi"}`, errEmptySender},
		{"empty content", `{"chatId":"g1","sender":"u1","content":""}`, errEmptyContent},
		{"unknown type", `{"chatId":"g1","sender":"u1","content":"hi","type":"video"}`, errBadType},
	}
	for _, c := range cases {
		if _, err := parseSendRequest(json.RawMessage(c.data)); !errors.Is(err, c.want) {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, err)
		}
	}

	// 非 JSON 载荷
	if _, err := parseSendRequest(json.RawMessage(`not json`)); err == nil {
		t.Error("Expected error for malformed payload")
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://chat.example.edu"})

	mkReq := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	// 白名单内放行
	if !check(mkReq("https://chat.example.edu")) {
		t.Error("Whitelisted origin should be allowed")
	}
	// 无 Origin（非浏览器客户端）放行
	if !check(mkReq("")) {
		t.Error("Requests without Origin should be allowed")
	}
	// 白名单外拒绝
	if check(mkReq("https://evil.example.com")) {
		t.Error("Unknown origin should be rejected")
	}

	// 通配放行一切
	wildcard := originChecker([]string{"*"})
	if !wildcard(mkReq("https://evil.example.com")) {
		t.Error("Wildcard should allow any origin")
	}
}
