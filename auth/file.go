package auth

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Structs

// FileAuthenticator contains file based authentication
// information including the in-memory sorted list of
// user records parsed from the users file.
type FileAuthenticator struct {
	Users []User
}

// Functions

// NewFileAuthenticator takes in a file name and a separator,
// reads in specified file and parses it line by line as
// user name, bcrypt password hash, and UID validity elements
// separated by the separator. At the end, the returned struct
// contains an in-memory list sorted by user name.
func NewFileAuthenticator(file string, sep string) (*FileAuthenticator, error) {

	// Reserve space for the ordered users list in memory.
	users := make([]User, 0, 50)

	// Open file with authentication information.
	handle, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("[auth.NewFileAuthenticator] Could not open supplied authentication file: %v", err)
	}
	defer handle.Close()

	// Create a new scanner on top of file handle.
	scanner := bufio.NewScanner(handle)

	i := 1
	// As long as there are lines left, scan them into memory.
	for scanner.Scan() {

		// Split read line based on separator defined in config file.
		userData := strings.Split(scanner.Text(), sep)
		if len(userData) != 3 {
			return nil, fmt.Errorf("[auth.NewFileAuthenticator] Line %d of authentication file does not contain three fields", i)
		}

		uidValidity, err := strconv.ParseUint(userData[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("[auth.NewFileAuthenticator] Line %d of authentication file carries a malformed UID validity value: %v", i, err)
		}

		// Create new user struct.
		nextUser := User{
			Email:        userData[0],
			PasswordHash: userData[1],
			UIDValidity:  uint32(uidValidity),
		}

		// Append new user element to slice.
		users = append(users, nextUser)

		i++
	}

	// If the scanner ended with an error, report it.
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("[auth.NewFileAuthenticator] Experienced error while scanning authentication file: %v", err)
	}

	// Sort users list to search it efficiently later on.
	sort.Slice(users, func(i, j int) bool {
		return users[i].Email < users[j].Email
	})

	return &FileAuthenticator{
		Users: users,
	}, nil
}

// Lookup searches the in-memory list for a user record
// matching the supplied name.
func (f *FileAuthenticator) Lookup(username string) (*User, error) {

	// Search in user list for user matching supplied name.
	i := sort.Search(len(f.Users), func(i int) bool {
		return f.Users[i].Email >= username
	})

	// If that user does not exist, throw an error.
	if !((i < len(f.Users)) && (f.Users[i].Email == username)) {
		return nil, ErrUnknownUser
	}

	user := f.Users[i]

	return &user, nil
}
