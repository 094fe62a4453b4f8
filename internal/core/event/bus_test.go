package event

import (
	"reflect"
	"testing"
)

func TestBusDeliversNextTickInOrder(t *testing.T) {
	b := NewBus()
	var got []string
	Subscribe(b, func(e PlayerSpawned) { got = append(got, "spawn:"+e.Name) })
	Subscribe(b, func(e PlayerDied) { got = append(got, "died:"+e.Name) })

	Emit(b, PlayerSpawned{PlayerID: 1, Name: "a"})
	Emit(b, PlayerDied{PlayerID: 1, Name: "a"})
	Emit(b, PlayerSpawned{PlayerID: 2, Name: "b"})
	Emit(b, PlayerLeft{PlayerID: 3})

	b.DispatchAll()
	if len(got) != 0 {
		t.Fatalf("events delivered before the swap: %v", got)
	}
	if b.Pending() != 4 {
		t.Fatalf("pending %d", b.Pending())
	}

	b.SwapBuffers()
	b.DispatchAll()
	want := []string{"spawn:a", "died:a", "spawn:b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	got = nil
	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 0 || b.Pending() != 0 {
		t.Fatalf("events delivered twice: %v", got)
	}
}
