package intent

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello, World!", "hello world"},
		{"  What's   NEW??  ", "what s new"},
		{"café ☕", "café"},
		{"Olá, tudo bem?", "olá tudo bem"},
		{"", ""},
		{"2024 release", "2024 release"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Hello, World!", "what model are you?", "latest GO version"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

func TestClassifySmalltalk(t *testing.T) {
	for _, in := range []string{"hi", "hello", "hey", "yo", "sup", "hola", "ok", "éé"} {
		outcome, _ := Classify(Normalize(in), false)
		if outcome != Smalltalk {
			t.Errorf("expected smalltalk for %q, got %v", in, outcome)
		}
	}
}

func TestClassifyKeepsAccentedGreetings(t *testing.T) {
	// "olá" is three letters, not two; it must reach the model rather
	// than collapse into the short-input greeting path
	normalized := Normalize("olá")
	if normalized != "olá" {
		t.Fatalf("Normalize(%q) = %q, want %q", "olá", normalized, "olá")
	}
	outcome, _ := Classify(normalized, false)
	if outcome != Normal {
		t.Errorf("expected normal for %q, got %v", "olá", outcome)
	}
}

func TestClassifyIdentityProbe(t *testing.T) {
	for _, in := range []string{
		"What model are you?",
		"who built you",
		"Are you OpenAI?",
	} {
		outcome, reply := Classify(Normalize(in), false)
		if outcome != StaticReply {
			t.Fatalf("expected static reply for %q, got %v", in, outcome)
		}
		if reply != IdentityReply {
			t.Errorf("expected identity reply for %q, got %q", in, reply)
		}
	}
}

func TestClassifySeahorse(t *testing.T) {
	outcome, reply := Classify(Normalize("show me a seahorse picture"), false)
	if outcome != StaticReply {
		t.Fatalf("expected static reply, got %v", outcome)
	}
	if reply != SeahorseReply {
		t.Errorf("expected seahorse reply, got %q", reply)
	}
}

func TestClassifyMandatorySearch(t *testing.T) {
	for _, in := range []string{
		"what is the latest go version",
		"bitcoin price",
		"who is the president of france",
		"what happened in 2025",
		"news about fusion energy",
	} {
		outcome, _ := Classify(Normalize(in), false)
		if outcome != MandatorySearch {
			t.Errorf("expected mandatory search for %q, got %v", in, outcome)
		}
	}
}

func TestClassifyNormal(t *testing.T) {
	for _, in := range []string{
		"explain how goroutines work",
		"write a haiku about rivers",
	} {
		outcome, _ := Classify(Normalize(in), false)
		if outcome != Normal {
			t.Errorf("expected normal for %q, got %v", in, outcome)
		}
	}
}

func TestClassifyImageBypassesShortCircuits(t *testing.T) {
	for _, in := range []string{"hi", "what model are you", "latest news"} {
		outcome, _ := Classify(Normalize(in), true)
		if outcome != Normal {
			t.Errorf("image turn %q should classify normal, got %v", in, outcome)
		}
	}
}
