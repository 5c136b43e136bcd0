package deploy

import (
	"context"
	"errors"
	"testing"
)

func TestExecutorRunsPhasesInOrder(t *testing.T) {
	var order []string
	phase := func(name string) Phase {
		return Phase{Name: name, Run: func(_ context.Context, _ *Context) error {
			order = append(order, name)
			return nil
		}}
	}

	e := NewExecutor([]Phase{phase("one"), phase("two"), phase("three")})
	res, err := e.Run(context.Background(), &Context{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(order) != 3 || order[0] != "one" || order[1] != "two" || order[2] != "three" {
		t.Errorf("order = %v", order)
	}
	for _, name := range []string{"one", "two", "three"} {
		if res.Statuses[name] != StatusSucceeded {
			t.Errorf("status[%s] = %s", name, res.Statuses[name])
		}
	}
}

func TestExecutorFailureHaltsPipeline(t *testing.T) {
	ran := map[string]bool{}
	ok := func(name string) Phase {
		return Phase{Name: name, Run: func(_ context.Context, _ *Context) error {
			ran[name] = true
			return nil
		}}
	}
	failing := Phase{Name: "boom", Run: func(_ context.Context, _ *Context) error {
		ran["boom"] = true
		return errors.New("provisioning failed")
	}}

	e := NewExecutor([]Phase{ok("first"), failing, ok("after")})
	res, err := e.Run(context.Background(), &Context{})
	if err == nil {
		t.Fatal("expected error")
	}

	if ran["after"] {
		t.Error("phase after the failure must not run")
	}
	if res.Failed != "boom" {
		t.Errorf("Failed = %q", res.Failed)
	}
	if res.Statuses["first"] != StatusSucceeded ||
		res.Statuses["boom"] != StatusFailed ||
		res.Statuses["after"] != StatusSkipped {
		t.Errorf("statuses = %v", res.Statuses)
	}
}

func TestExecutorSkip(t *testing.T) {
	ran := false
	skipped := Phase{
		Name: "optional",
		Skip: func(_ *Context) bool { return true },
		Run: func(_ context.Context, _ *Context) error {
			ran = true
			return nil
		},
	}

	e := NewExecutor([]Phase{skipped})
	res, err := e.Run(context.Background(), &Context{})
	if err != nil {
		t.Fatal(err)
	}
	if ran {
		t.Error("skipped phase ran")
	}
	if res.Statuses["optional"] != StatusSkipped {
		t.Errorf("status = %s", res.Statuses["optional"])
	}
}
