package handlers

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cyverse-de/ticket-tracker/common"
	"github.com/cyverse-de/ticket-tracker/model"
)

// avatarFolder is the file store folder that holds uploaded avatars.
const avatarFolder = "avatars"

// NewUser describes a user to be registered.
type NewUser struct {
	Email    string
	Username string
}

// Validate checks the registration details.
func (u *NewUser) Validate() error {
	if err := checkLength("username", u.Username, 2, 64); err != nil {
		return err
	}
	if err := common.ValidateEmailAddress(strings.TrimSpace(u.Email)); err != nil {
		return NewValidationError("invalid email address `%s`: %s", u.Email, err)
	}
	return nil
}

// ProfileChanges describes an edit to a user's profile.
type ProfileChanges struct {
	Department     string
	Description    string
	PrivateProfile bool
	Avatar         *Upload
}

// Validate checks the changes against the form constraints.
func (c *ProfileChanges) Validate() error {
	return firstError(
		checkLength("department", c.Department, 2, 128),
		checkLength("description", c.Description, 1, 750),
	)
}

// Users implements user registration and profile maintenance.
type Users struct {
	base
}

// NewUsers returns the user workflows.
func NewUsers(deps Dependencies) *Users {
	return &Users{base: newBase(deps)}
}

// Get loads a user.
func (h *Users) Get(ctx context.Context, id int64) (*model.User, error) {
	var user *model.User
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		user, err = h.db.GetUser(ctx, tx, id)
		if err != nil {
			return lookupError(err, "user %d", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Register adds a user with the default profile settings.
func (h *Users) Register(ctx context.Context, input *NewUser) (*model.User, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	user := &model.User{
		Email:       strings.TrimSpace(input.Email),
		Username:    strings.TrimSpace(input.Username),
		Department:  model.DefaultDepartment,
		Description: model.DefaultDescription,
		Avatar:      model.DefaultAvatar,
		DateCreated: h.now(),
	}
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		taken, err := h.db.UsernameTaken(ctx, tx, user.Username)
		if err != nil {
			return NewPersistenceError(err, "unable to look up user %s", user.Username)
		}
		if taken {
			return NewValidationError("the username %s is already taken", user.Username)
		}
		if taken, err = h.db.EmailTaken(ctx, tx, user.Email); err != nil {
			return NewPersistenceError(err, "unable to look up the email address %s", user.Email)
		}
		if taken {
			return NewValidationError("the email address %s is already registered", user.Email)
		}
		if err = h.db.AddUser(ctx, tx, user); err != nil {
			return NewPersistenceError(err, "unable to register user %s", user.Username)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("registered user %s with ID %d", user.Username, user.ID)
	return user, nil
}

// UpdateProfile applies changes to the actor's own profile. A new avatar replaces the previous upload, which is
// removed once the change is committed.
func (h *Users) UpdateProfile(ctx context.Context, actor model.UserRef, id int64, changes *ProfileChanges) (*model.User, error) {
	if err := changes.Validate(); err != nil {
		return nil, err
	}
	if actor.ID != id {
		return nil, NewPermissionError("users may only edit their own profiles")
	}

	var user *model.User
	var newAvatar, oldAvatar string
	err := h.inTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		user, err = h.db.GetUser(ctx, tx, id)
		if err != nil {
			return lookupError(err, "user %d", id)
		}

		if newAvatar, err = h.store(ctx, avatarFolder, changes.Avatar); err != nil {
			return err
		}
		if newAvatar != "" {
			oldAvatar = user.Avatar
			user.Avatar = newAvatar
		}
		user.Department = changes.Department
		user.Description = changes.Description
		user.PrivateProfile = changes.PrivateProfile

		if err = h.db.UpdateUserProfile(ctx, tx, user); err != nil {
			return NewPersistenceError(err, "unable to update the profile of user %d", id)
		}
		return nil
	})
	if err != nil {
		h.removeFile(ctx, newAvatar)
		return nil, err
	}

	if oldAvatar != model.DefaultAvatar {
		h.removeFile(ctx, oldAvatar)
	}
	return user, nil
}
