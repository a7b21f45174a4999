package server

// delivery is one outbound frame. except names a connection that must not
// receive it; empty means everyone.
type delivery struct {
	payload []byte
	except  string
}

// presenceOnJoin returns the frames for a successful join: the roster to every
// connection, and a join notice to everyone but the joiner when the name is
// new to the roster.
func presenceOnJoin(change RosterChange, joinerID string) ([]delivery, error) {
	return presenceFrames(change, change.Entered, EventUserJoined, joinerID)
}

// presenceOnLeave mirrors presenceOnJoin for an unbind or disconnect.
func presenceOnLeave(change RosterChange, leaverID string) ([]delivery, error) {
	return presenceFrames(change, change.Departed, EventUserLeft, leaverID)
}

func presenceFrames(change RosterChange, notify bool, event, selfID string) ([]delivery, error) {
	roster, err := encodeEvent(EventOnlineUsers, change.Roster)
	if err != nil {
		return nil, err
	}

	out := []delivery{{payload: roster}}
	if !notify {
		return out, nil
	}

	notice, err := encodeEvent(event, PresencePayload{Name: change.Name})
	if err != nil {
		return nil, err
	}
	return append(out, delivery{payload: notice, except: selfID}), nil
}
