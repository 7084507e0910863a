package udevwatch

import "testing"

func Test_Dispatch_IgnoresOtherDevices(t *testing.T) {
	var attached, detached bool
	cb := Callbacks{
		OnAttach: func(string) { attached = true },
		OnDetach: func(string) { detached = true },
	}

	Dispatch(Event{Action: "add", DevNode: "/dev/ttyUSB1"}, "/dev/ttyUSB0", cb)

	if attached || detached {
		t.Fatalf("expected no callback for an unrelated device node")
	}
}

func Test_Dispatch_CallsOnAttach(t *testing.T) {
	var got string
	cb := Callbacks{OnAttach: func(dev string) { got = dev }}

	Dispatch(Event{Action: "add", DevNode: "/dev/ttyUSB0"}, "/dev/ttyUSB0", cb)

	if got != "/dev/ttyUSB0" {
		t.Fatalf("OnAttach not called with expected device, got %q", got)
	}
}

func Test_Dispatch_CallsOnDetach(t *testing.T) {
	var got string
	cb := Callbacks{OnDetach: func(dev string) { got = dev }}

	Dispatch(Event{Action: "remove", DevNode: "/dev/ttyUSB0"}, "/dev/ttyUSB0", cb)

	if got != "/dev/ttyUSB0" {
		t.Fatalf("OnDetach not called with expected device, got %q", got)
	}
}

func Test_Dispatch_UnknownAction_NoCallback(t *testing.T) {
	called := false
	cb := Callbacks{
		OnAttach: func(string) { called = true },
		OnDetach: func(string) { called = true },
	}

	Dispatch(Event{Action: "change", DevNode: "/dev/ttyUSB0"}, "/dev/ttyUSB0", cb)

	if called {
		t.Fatalf("expected no callback for an action other than add/remove")
	}
}

func Test_Dispatch_NilCallback_NoPanic(t *testing.T) {
	Dispatch(Event{Action: "add", DevNode: "/dev/ttyUSB0"}, "/dev/ttyUSB0", Callbacks{})
}
