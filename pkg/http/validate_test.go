package http

import "testing"

type symbolReq struct {
	Symbol string `validate:"required,symbol"`
	Window string `default:"1D" validate:"oneof=1D 5D"`
}

func TestValidateSymbolTag(t *testing.T) {
	cases := map[string]bool{
		"AAPL":     true,
		"BRK.B":    true,
		"^GSPC":    true,
		"":         false,
		"AAPL; --": false,
	}
	for sym, ok := range cases {
		req := &symbolReq{Symbol: sym}
		errs := Validate(req)
		if ok && errs != nil {
			t.Errorf("%q: unexpected errors %v", sym, errs)
		}
		if !ok && errs == nil {
			t.Errorf("%q: expected validation error", sym)
		}
		if req.Window != "1D" {
			t.Errorf("default not applied")
		}
	}
}

func TestValidateOneOfMessage(t *testing.T) {
	errs := Validate(&symbolReq{Symbol: "AAPL", Window: "2W"})
	list, ok := errs.([]ValidationError)
	if !ok || len(list) != 1 {
		t.Fatalf("expected one validation error, got %#v", errs)
	}
	if list[0].Code != "ERR_ONEOF" || list[0].Field != "Window" {
		t.Fatalf("unexpected error %+v", list[0])
	}
}
