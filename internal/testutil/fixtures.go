package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"thesis-portal/internal/models"
	"thesis-portal/internal/repository"
)

// FixturePassword is the password of every fixture user
const FixturePassword = "correct-horse-battery"

// Fixtures holds the users of a typical department
type Fixtures struct {
	DB         *sql.DB
	Instructor *models.User
	Professors []*models.User
	Students   []*models.User
	Secretary  *models.User
}

// SetupFixtures creates one instructor, four other professors, three students
// and a secretary
func SetupFixtures(t *testing.T, db *sql.DB) *Fixtures {
	t.Helper()

	f := &Fixtures{DB: db}
	f.Instructor = CreateUser(t, db, "instructor@uni.test", "Irene", "Instructor", models.RoleProfessor)
	for i := 1; i <= 4; i++ {
		f.Professors = append(f.Professors,
			CreateUser(t, db, fmt.Sprintf("prof%d@uni.test", i), "Professor", fmt.Sprintf("No%d", i), models.RoleProfessor))
	}
	for i := 1; i <= 3; i++ {
		f.Students = append(f.Students,
			CreateUser(t, db, fmt.Sprintf("student%d@uni.test", i), "Student", fmt.Sprintf("No%d", i), models.RoleStudent))
	}
	f.Secretary = CreateUser(t, db, "secretary@uni.test", "Sophia", "Secretary", models.RoleSecretary)
	return f
}

// Actor returns the business actor of u
func Actor(u *models.User) models.Actor {
	return models.Actor{ID: u.ID, Role: u.Role}
}

// CreateUser inserts a user with FixturePassword
func CreateUser(t *testing.T, db *sql.DB, email, firstName, lastName string, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(FixturePassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		Role:         role,
	}
	if role == models.RoleStudent {
		number := fmt.Sprintf("AM-%s", lastName)
		user.RegistrationNumber = &number
	}

	if err := repository.NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("Failed to create user %s: %v", email, err)
	}
	return user
}

// CreateTopic inserts an unassigned topic supervised by instructor
func CreateTopic(t *testing.T, db *sql.DB, instructor *models.User, title string) *models.Thesis {
	t.Helper()

	thesis := &models.Thesis{Title: title, Description: "fixture topic", InstructorID: instructor.ID}
	if err := repository.NewThesisRepository(db).Create(context.Background(), thesis); err != nil {
		t.Fatalf("Failed to create topic: %v", err)
	}
	return thesis
}
