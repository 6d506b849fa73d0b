package ir

import (
	"errors"
	"strings"
	"testing"
)

func TestDefinitionBuilder(t *testing.T) {
	def, err := NewDefinition().
		Register(&greeter{}, "A greeter").
		Register(color(0)).
		Value("default_greeter", TypeFor[*greeter](), "The default").
		ValueOf("answer", 42).
		Alias("Names", Array(String())).
		Module("tools", tools{}, "Tools module").
		Function("greet", func(name string) string { return name }, "Greets", "someone").
		Finish()
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	want := []struct {
		name string
		kind Kind
	}{
		{"greeter", KindClass},
		{"Color", KindEnum},
		{"default_greeter", KindValue},
		{"answer", KindValue},
		{"Names", KindAlias},
		{"tools", KindModule},
		{"greet", KindFunction},
	}
	if len(def.Entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(def.Entries), len(want))
	}
	for i, w := range want {
		e := def.Entries[i]
		if e.Type.Kind() != w.kind {
			t.Errorf("entry %d kind = %s, want %s", i, e.Type.Kind(), w.kind)
		}
		if e.Name != w.name {
			t.Errorf("entry %d name = %q, want %q", i, e.Name, w.name)
		}
	}
	if def.Entries[0].Doc != "A greeter" {
		t.Errorf("class doc = %q", def.Entries[0].Doc)
	}
	if def.Entries[6].Doc != "Greets\nsomeone" {
		t.Errorf("function doc = %q", def.Entries[6].Doc)
	}
	if len(def.Warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", def.Warnings)
	}
}

func TestDefinitionBuilder_RegisterEnum(t *testing.T) {
	def, err := NewDefinition().RegisterEnum(color(0)).Finish()
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if def.Entries[0].Name != "Color" {
		t.Errorf("enum entry name = %q, want Color", def.Entries[0].Name)
	}

	_, err = NewDefinition().RegisterEnum(point{}).Finish()
	var reg *RegistrationError
	if !errors.As(err, &reg) {
		t.Fatalf("Finish() error = %v, want *RegistrationError", err)
	}
	if reg.Want != KindEnum || reg.Got != KindTable || reg.Name != "point" {
		t.Errorf("RegistrationError = %+v", reg)
	}
}

func TestDefinitionBuilder_RegisterFallsBackToAlias(t *testing.T) {
	def, err := NewDefinition().Register(point{}).Finish()
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if def.Entries[0].Type.Kind() != KindAlias {
		t.Errorf("kind = %s, want Alias", def.Entries[0].Type.Kind())
	}
	if len(def.Warnings) != 1 || def.Warnings[0].Code != "register_alias_fallback" {
		t.Errorf("warnings = %+v", def.Warnings)
	}
}

func TestDefinitionBuilder_CyclicModule(t *testing.T) {
	_, err := NewDefinition().Module("loop", loop{}).Finish()
	var cyc *CyclicModuleError
	if !errors.As(err, &cyc) {
		t.Fatalf("Finish() error = %v, want *CyclicModuleError", err)
	}
}

func TestDefinitionsBuilder(t *testing.T) {
	defs, err := NewDefinitions().
		Define("init", NewDefinition().Register(point{})).
		Define("extra", NewDefinition().ValueOf("x", "s")).
		Finish()
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if len(defs.Groups) != 2 || defs.Groups[0].Name != "init" || defs.Groups[1].Name != "extra" {
		t.Fatalf("groups = %+v", defs.Groups)
	}
	if defs.Get("extra") == nil || defs.Get("missing") != nil {
		t.Error("Get() lookup failed")
	}
	warnings := defs.Warnings()
	if len(warnings) != 1 || warnings[0].Group != "init" {
		t.Errorf("warnings = %+v", warnings)
	}
}

func TestDefinitionsBuilder_Errors(t *testing.T) {
	_, err := NewDefinitions().
		Define("a", NewDefinition()).
		Define("a", NewDefinition()).
		Define("b", NewDefinition().RegisterEnum("not an enum")).
		Finish()
	if err == nil {
		t.Fatal("Finish() error = nil")
	}
	if !strings.Contains(err.Error(), "duplicate_group") {
		t.Errorf("error %q does not mention duplicate_group", err)
	}
	var reg *RegistrationError
	if !errors.As(err, &reg) {
		t.Errorf("error %v does not wrap *RegistrationError", err)
	}
}

func TestDefinition_Validate(t *testing.T) {
	def := &Definition{
		Name: "init",
		Entries: []Entry{
			{Name: "a", Type: Value(String())},
			{Name: "a", Type: Value(String())},
			{Name: "", Type: Value(String())},
		},
	}
	errs := def.Validate()
	if len(errs) != 2 {
		t.Fatalf("Validate() returned %d errors, want 2: %v", len(errs), errs)
	}
	codes := []string{errs[0].(*ValidationError).Code, errs[1].(*ValidationError).Code}
	if codes[0] != "duplicate_entry" || codes[1] != "empty_name" {
		t.Errorf("codes = %v", codes)
	}
}
