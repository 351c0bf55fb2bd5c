package embedding

import (
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("Hello world", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths: ids=%d attn=%d types=%d", len(ids), len(attn), len(types))
	}
	if ids[0] != clsTokenID {
		t.Errorf("expected CLS %d, got %d", clsTokenID, ids[0])
	}
	if ids[3] != sepTokenID {
		t.Errorf("expected SEP at 3, got %d", ids[3])
	}
	for i := 0; i < 4; i++ {
		if attn[i] != 1 {
			t.Errorf("attention[%d] should be 1", i)
		}
	}
	if attn[4] != 0 {
		t.Error("padding should not be attended")
	}

	again, _, _ := tok.Tokenize("hello WORLD", 10)
	if again[1] != ids[1] || again[2] != ids[2] {
		t.Error("token ids should be case-insensitive and deterministic")
	}
}

func TestSimpleTokenizer_Truncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, _ := tok.Tokenize("a b c d e f g h", 4)
	if ids[3] != sepTokenID {
		t.Errorf("expected SEP in last slot, got %d", ids[3])
	}
	for i, a := range attn {
		if a != 1 {
			t.Errorf("attention[%d] should be 1 when truncated", i)
		}
	}
}
