package emotion

import "testing"

func TestParseScoreJSONPlain(t *testing.T) {
	scores, err := parseScoreJSON(`{"happy": 80, "sad": 5, "neutral": 15}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if scores["happy"] != 80 {
		t.Fatalf("unexpected scores: %v", scores)
	}
}

func TestParseScoreJSONFenced(t *testing.T) {
	reply := "```json\n{\"happy\": 12.5, \"neutral\": 87.5}\n```"
	scores, err := parseScoreJSON(reply)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if scores["neutral"] != 87.5 {
		t.Fatalf("unexpected scores: %v", scores)
	}
}

func TestParseScoreJSONProse(t *testing.T) {
	if _, err := parseScoreJSON("I cannot analyze this image."); err == nil {
		t.Fatal("expected error for prose reply")
	}
}

func TestParseScoreJSONEmpty(t *testing.T) {
	if _, err := parseScoreJSON("{}"); err == nil {
		t.Fatal("expected error for empty score object")
	}
}
