package moderation

import "testing"

func TestCensorReplacesFlaggedWords(t *testing.T) {
	f := NewFilter(nil)

	censored, hit := f.Censor("this is complete bullshit honestly")
	if !hit {
		t.Fatal("命中词表时应返回true")
	}
	if censored != "this is complete **** honestly" {
		t.Fatalf("打码结果不符合预期: %q", censored)
	}
}

func TestCensorIsCaseInsensitive(t *testing.T) {
	f := NewFilter(nil)

	censored, hit := f.Censor("What the FUCK")
	if !hit || censored != "What the ****" {
		t.Fatalf("大小写变体应同样被打码: hit=%v, %q", hit, censored)
	}
}

func TestCensorMatchesWholeWordsOnly(t *testing.T) {
	f := NewFilter(nil)

	// "class" 含有 "ass"，但不是整词命中
	censored, hit := f.Censor("my class assignment")
	if hit {
		t.Fatalf("子串不应触发打码: %q", censored)
	}
	if censored != "my class assignment" {
		t.Fatalf("未命中时文本应保持原样: %q", censored)
	}
}

func TestCensorCleanTextUntouched(t *testing.T) {
	f := NewFilter(nil)

	censored, hit := f.Censor("天气真好")
	if hit || censored != "天气真好" {
		t.Fatalf("干净文本不应被标记或修改: hit=%v, %q", hit, censored)
	}
}

func TestCustomWordsExtendLexicon(t *testing.T) {
	f := NewFilter([]string{"volatility"})

	censored, hit := f.Censor("too much Volatility here")
	if !hit || censored != "too much **** here" {
		t.Fatalf("自定义词应被打码: hit=%v, %q", hit, censored)
	}
}

func TestGlobalFilterInitialize(t *testing.T) {
	Initialize([]string{"moonshot"})
	defer Initialize(nil)

	censored, hit := Censor("another moonshot call")
	if !hit || censored != "another **** call" {
		t.Fatalf("全局过滤器应使用自定义词表: hit=%v, %q", hit, censored)
	}
}
