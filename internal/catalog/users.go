package catalog

// GetUsers returns every user whose username matches pattern (empty
// pattern matches all).
func (s *Snapshot) GetUsers(pattern string) []*User {
	var out []*User
	for _, u := range s.users {
		if matchName(u.Username, pattern, s.caseSensitive) {
			out = append(out, u)
		}
	}
	return out
}

// GetUser looks up a single user by id.
func (s *Snapshot) GetUser(id ID) (*User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, &NotFoundError{EntityKind: "user", Key: idKey(id)}
}

// GetUserByName looks up a single user by exact username.
func (s *Snapshot) GetUserByName(username string) (*User, error) {
	var matches []*User
	for _, u := range s.users {
		if foldName(u.Username, s.caseSensitive) == foldName(username, s.caseSensitive) {
			matches = append(matches, u)
		}
	}
	return oneOf(matches, "user", username)
}

// AddUser creates a new user; username must be unique (case-folding
// policy aware).
func (tx *Tx) AddUser(username, password string) (*User, error) {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()

	for _, u := range tx.h.users {
		if foldName(u.Username, tx.h.caseSensitive) == foldName(username, tx.h.caseSensitive) {
			return nil, &IntegrityViolationError{EntityKind: "user", Key: username, Reason: "username already exists"}
		}
	}
	u := &User{ID: tx.h.ids.nextID(), Username: username, Password: password}
	tx.h.users[u.ID] = u
	tx.record(func() { delete(tx.h.users, u.ID) })
	return u, nil
}

// DeleteUser removes a user by id.
func (tx *Tx) DeleteUser(id ID) error {
	tx.h.mu.Lock()
	defer tx.h.mu.Unlock()
	old, ok := tx.h.users[id]
	if !ok {
		return &NotFoundError{EntityKind: "user", Key: idKey(id)}
	}
	delete(tx.h.users, id)
	tx.record(func() { tx.h.users[id] = old })
	return nil
}
