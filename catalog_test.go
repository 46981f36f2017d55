package agent

import "testing"

func TestCatalogRegisterAndLookup(t *testing.T) {
	c := NewStaticToolCatalog()
	first := &stubTool{spec: ToolSpec{Name: "interview"}}
	second := &stubTool{spec: ToolSpec{Name: "say_goodbye"}}
	for _, tool := range []Tool{first, second} {
		if err := c.Register(tool); err != nil {
			t.Fatalf("Register returned error: %v", err)
		}
	}

	if _, spec, ok := c.Lookup("  INTERVIEW "); !ok || spec.Name != "interview" {
		t.Fatalf("expected case-insensitive lookup, got %v %+v", ok, spec)
	}
	specs := c.Specs()
	if len(specs) != 2 || specs[0].Name != "interview" || specs[1].Name != "say_goodbye" {
		t.Fatalf("expected registration order, got %+v", specs)
	}
	if tools := c.Tools(); tools[1] != second {
		t.Fatalf("expected tools in registration order")
	}
}

func TestCatalogRejectsInvalidTools(t *testing.T) {
	c := NewStaticToolCatalog()
	if err := c.Register(nil); err == nil {
		t.Fatalf("expected error for nil tool")
	}
	if err := c.Register(&stubTool{spec: ToolSpec{Name: " "}}); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := c.Register(&stubTool{spec: ToolSpec{Name: "has space"}}); err == nil {
		t.Fatalf("expected error for invalid name")
	}
	if err := c.Register(&stubTool{spec: ToolSpec{Name: "echo"}}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := c.Register(&stubTool{spec: ToolSpec{Name: "Echo"}}); err == nil {
		t.Fatalf("expected duplicate error")
	}
}
