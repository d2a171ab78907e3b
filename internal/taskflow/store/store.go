package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by the sqlite and
// postgres drivers. Repositories hang off it as methods so a Tx can hand out
// the same repositories bound to the transaction.
//
// Every time a repository compares against "now" it takes the instant as a
// parameter, so SQL never calls a database clock.
type Store interface {
	Users() Users
	Categories() Categories
	Tasks() Tasks
	SubTasks() SubTasks
	LoginAttempts() LoginAttempts
	RememberTokens() RememberTokens
	PasswordResets() PasswordResets
	Sessions() Sessions

	ApplyMigrations(ctx context.Context) error

	// Tx starts a read/write transaction. The caller must Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil.
	// fn must only use the Tx it is given.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Nested transactions are not supported.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns an active (not deleted) user.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail returns an active user by email, case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// EmailExists reports whether an active user other than excludeID owns email.
	EmailExists(ctx context.Context, email, excludeID string) (bool, error)

	CreateUser(ctx context.Context, u domain.User) error

	// SetVerificationToken stores a fresh verification fingerprint.
	SetVerificationToken(ctx context.Context, userID, tokenHash string, expiresAt, now time.Time) error

	// GetUserByVerificationToken returns the active, unverified user whose
	// token matches and has not expired at now.
	GetUserByVerificationToken(ctx context.Context, tokenHash string, now time.Time) (domain.User, error)

	// MarkEmailVerified sets email_verified_at and clears the token.
	MarkEmailVerified(ctx context.Context, userID string, now time.Time) error

	UpdateProfile(ctx context.Context, userID string, p domain.ProfileUpdate, now time.Time) error
	UpdatePasswordHash(ctx context.Context, userID, hash string, now time.Time) error

	// SoftDeleteUser marks the account deleted. Its email becomes free again.
	SoftDeleteUser(ctx context.Context, userID string, now time.Time) error
}

type Categories interface {
	// ListCategories returns the user's categories ordered by name.
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)

	// ListCategoryStats is ListCategories with counts of active tasks.
	ListCategoryStats(ctx context.Context, userID string) ([]domain.CategoryStats, error)

	GetCategory(ctx context.Context, userID, id string) (domain.Category, error)

	// CategoryNameExists checks for another category of the user named name.
	CategoryNameExists(ctx context.Context, userID, name, excludeID string) (bool, error)

	CreateCategory(ctx context.Context, c domain.Category) error
	UpdateCategory(ctx context.Context, c domain.Category) error
	DeleteCategory(ctx context.Context, userID, id string) error
}

type Tasks interface {
	CreateTask(ctx context.Context, t domain.Task) error

	// GetTask returns an active task owned by userID.
	GetTask(ctx context.Context, userID, id string) (domain.Task, error)

	// ListTasks returns matching active tasks and the total before paging.
	ListTasks(ctx context.Context, userID string, f domain.TaskFilter, today time.Time) ([]domain.Task, int, error)

	// ListBoardTasks returns all active tasks ordered by status column,
	// sort_order and creation time.
	ListBoardTasks(ctx context.Context, userID string) ([]domain.Task, error)

	// ListTasksDueBetween returns active tasks with from <= due_date < to.
	ListTasksDueBetween(ctx context.Context, userID string, from, to time.Time) ([]domain.Task, error)

	ListRecentTasks(ctx context.Context, userID string, limit int) ([]domain.Task, error)

	// ListUpcomingTasks returns not-done tasks with a due date on or after
	// today, soonest first.
	ListUpcomingTasks(ctx context.Context, userID string, today time.Time, limit int) ([]domain.Task, error)

	// UpdateTask writes every editable column of t.
	UpdateTask(ctx context.Context, t domain.Task) error

	// NextSortOrder is one past the largest sort_order in the status column.
	NextSortOrder(ctx context.Context, userID string, status domain.TaskStatus) (int, error)

	TaskStats(ctx context.Context, userID string, today time.Time) (domain.TaskStats, error)

	SoftDeleteTask(ctx context.Context, userID, id string, now time.Time) error

	// DetachCategory clears category_id on every task of the user in the
	// category, trashed ones included.
	DetachCategory(ctx context.Context, userID, categoryID string, now time.Time) error

	// Trash.
	ListDeletedTasks(ctx context.Context, userID string) ([]domain.Task, error)
	GetDeletedTask(ctx context.Context, userID, id string) (domain.Task, error)
	RestoreTask(ctx context.Context, userID, id string, now time.Time) error
	PurgeTask(ctx context.Context, userID, id string) error
	PurgeDeletedTasks(ctx context.Context, userID string) (int64, error)

	// PurgeDeletedBefore removes every task trashed before cutoff.
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type SubTasks interface {
	ListSubTasks(ctx context.Context, taskID string) ([]domain.SubTask, error)
	CreateSubTask(ctx context.Context, s domain.SubTask) error

	// GetSubTask returns a subtask whose task is active and owned by userID.
	GetSubTask(ctx context.Context, userID, id string) (domain.SubTask, error)

	SetSubTaskCompleted(ctx context.Context, id string, completed bool, now time.Time) error
	DeleteSubTask(ctx context.Context, id string) error
	NextSubTaskSortOrder(ctx context.Context, taskID string) (int, error)
}

type LoginAttempts interface {
	RecordLoginAttempt(ctx context.Context, a domain.LoginAttempt) error

	// CountRecentFailures counts failed attempts for email OR ip since since.
	CountRecentFailures(ctx context.Context, email, ip string, since time.Time) (int, error)

	DeleteLoginAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type RememberTokens interface {
	CreateRememberToken(ctx context.Context, t domain.RememberToken) error

	// GetRememberToken returns an unexpired token by fingerprint.
	GetRememberToken(ctx context.Context, tokenHash string, now time.Time) (domain.RememberToken, error)

	DeleteRememberToken(ctx context.Context, id string) error
	DeleteUserRememberTokens(ctx context.Context, userID string) error
	DeleteExpiredRememberTokens(ctx context.Context, now time.Time) (int64, error)
}

type PasswordResets interface {
	CreatePasswordReset(ctx context.Context, r domain.PasswordReset) error

	// GetActivePasswordReset returns an unused, unexpired reset by fingerprint.
	GetActivePasswordReset(ctx context.Context, tokenHash string, now time.Time) (domain.PasswordReset, error)

	// CountPasswordResetsSince counts reset requests for email since since.
	CountPasswordResetsSince(ctx context.Context, email string, since time.Time) (int, error)

	// MarkPasswordResetsUsed consumes every outstanding reset for email.
	MarkPasswordResetsUsed(ctx context.Context, email string, now time.Time) error

	// DeleteStalePasswordResets removes resets created before cutoff.
	DeleteStalePasswordResets(ctx context.Context, cutoff time.Time) (int64, error)
}

type Sessions interface {
	// GetSession returns a session that has not expired at now.
	GetSession(ctx context.Context, id string, now time.Time) (domain.Session, error)

	// SaveSession inserts or replaces the session row.
	SaveSession(ctx context.Context, s domain.Session) error

	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}
