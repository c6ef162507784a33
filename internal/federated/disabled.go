// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package federated

import "context"

// Disabled stands in for the provider when FEDERATED_URL is not configured.
//
// It never has a session and never emits events.
type Disabled struct{}

func (Disabled) CurrentSession(context.Context) (*Session, error) { return nil, nil }

func (Disabled) OnSessionChange(func(Event)) func() { return func() {} }

func (Disabled) SignInWithPassword(context.Context, string, string) (*Session, error) {
	return nil, ErrDisabled
}

func (Disabled) SignUp(context.Context, string, string) (*Session, error) { return nil, ErrDisabled }

func (Disabled) SignOut(context.Context) error { return nil }

func (Disabled) ResetPassword(context.Context, string) error { return ErrDisabled }
