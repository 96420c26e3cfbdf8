package models

import "slices"

// AddID appends id to ids unless it is already present.
func AddID(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

// RemoveID drops every occurrence of id. The result is never nil so it
// serializes as an empty list.
func RemoveID(ids []string, id string) []string {
	ids = slices.DeleteFunc(ids, func(v string) bool { return v == id })
	if ids == nil {
		return []string{}
	}
	return ids
}

func (u User) Clone() User {
	u.Friends = cloneIDs(u.Friends)
	u.FriendRequests.Incoming = cloneIDs(u.FriendRequests.Incoming)
	u.FriendRequests.Outgoing = cloneIDs(u.FriendRequests.Outgoing)
	u.Servers = cloneIDs(u.Servers)
	return u
}

// Normalize replaces nil lists so records written by older clients still satisfy the set operations.
func (u *User) Normalize() {
	if u.Friends == nil {
		u.Friends = []string{}
	}
	if u.FriendRequests.Incoming == nil {
		u.FriendRequests.Incoming = []string{}
	}
	if u.FriendRequests.Outgoing == nil {
		u.FriendRequests.Outgoing = []string{}
	}
	if u.Servers == nil {
		u.Servers = []string{}
	}
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return slices.Clone(ids)
}

func (s *Server) Normalize() {
	if s.Members == nil {
		s.Members = []string{}
	}
	if s.Channels == nil {
		s.Channels = []Channel{}
	}
	if s.Bots == nil {
		s.Bots = []Bot{}
	}
}
