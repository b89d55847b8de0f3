// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package xhr

import (
	"container/list"
)

// An EventType names an event fired by an XMLHttpRequest.
type EventType string

const (
	ReadyStateChange EventType = "readystatechange"
	LoadStart        EventType = "loadstart"
	Progress         EventType = "progress"
	Abort            EventType = "abort"
	Error            EventType = "error"
	Load             EventType = "load"
	Timeout          EventType = "timeout"
	LoadEnd          EventType = "loadend"
)

// EventTypes returns every event type, in the order a successful
// asynchronous request first fires them.
func EventTypes() []EventType {
	return []EventType{LoadStart, ReadyStateChange, Progress, Load, Abort, Error, Timeout, LoadEnd}
}

// An Event is delivered to listeners. For progress events (every type
// but readystatechange) Loaded counts the response body bytes received
// so far and Total is the expected body size, which is only meaningful
// if LengthComputable is true.
type Event struct {
	Type             EventType
	Target           *XMLHttpRequest
	Loaded           int64
	Total            int64
	LengthComputable bool
}

// A Listener receives events.
type Listener func(Event)

// A ListenerID identifies a registered listener so that it can be
// removed.
type ListenerID uint64

type registration struct {
	id  ListenerID
	typ EventType
	fn  Listener
}

// listeners keeps listeners per event type in registration order, with
// constant-time removal by id.
type listeners struct {
	next   ListenerID
	byType map[EventType]*list.List
	index  map[ListenerID]*list.Element
}

func (ls *listeners) add(typ EventType, fn Listener) ListenerID {
	if ls.byType == nil {
		ls.byType = make(map[EventType]*list.List)
		ls.index = make(map[ListenerID]*list.Element)
	}
	l := ls.byType[typ]
	if l == nil {
		l = list.New()
		ls.byType[typ] = l
	}
	ls.next++
	id := ls.next
	ls.index[id] = l.PushBack(registration{id: id, typ: typ, fn: fn})
	return id
}

func (ls *listeners) remove(id ListenerID) bool {
	el, ok := ls.index[id]
	if !ok {
		return false
	}
	reg := el.Value.(registration)
	ls.byType[reg.typ].Remove(el)
	delete(ls.index, id)
	return true
}

// snapshot returns the listeners registered for typ at the moment of
// the call, so that listeners may add or remove listeners while an
// event is being dispatched.
func (ls *listeners) snapshot(typ EventType) []Listener {
	l := ls.byType[typ]
	if l == nil {
		return nil
	}
	fns := make([]Listener, 0, l.Len())
	for el := l.Front(); el != nil; el = el.Next() {
		fns = append(fns, el.Value.(registration).fn)
	}
	return fns
}
