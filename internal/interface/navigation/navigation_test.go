package navigation

import (
	"errors"
	"testing"

	"master-o-quizz/internal/application/session"
	"master-o-quizz/internal/domain/auth"
	"master-o-quizz/internal/infrastructure/apiclient"

	"github.com/stretchr/testify/assert"
)

type fakeSession struct {
	user    *auth.User
	logouts int
}

func (f *fakeSession) View() session.View { return session.View{User: f.user} }

func (f *fakeSession) Logout() {
	f.logouts++
	f.user = nil
}

var (
	admin  = &auth.User{ID: "1", Name: "Admin", Role: auth.RoleAdmin}
	member = &auth.User{ID: "2", Name: "", Role: auth.RoleUser}
)

func TestGuard(t *testing.T) {
	reports, _ := Lookup(PathReports)
	home, _ := Lookup(PathHome)

	tests := []struct {
		name  string
		route Route
		user  *auth.User
		want  Decision
	}{
		{"public anonymous", home, nil, Decision{Allow: true}},
		{"admin page anonymous", reports, nil, Decision{Redirect: PathLogin}},
		{"admin page as user", reports, member, Decision{Redirect: PathHome}},
		{"admin page as admin", reports, admin, Decision{Allow: true}},
		{"any logged-in user", Route{Path: "/me", RequireAuth: true}, member, Decision{Allow: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Guard(tt.route, tt.user))
		})
	}
}

func TestRouter_RedirectsAndReturnsAfterLogin(t *testing.T) {
	s := &fakeSession{}
	r := NewRouter(s, nil)

	assert.Equal(t, PathLogin, r.Navigate(PathCreateSkill))
	assert.Equal(t, PathLogin, r.Current())

	s.user = admin
	assert.Equal(t, PathCreateSkill, r.AfterLogin(nil), "returns to the page that required login")
	assert.Equal(t, PathHome, r.AfterLogin(nil), "from is consumed once")
	assert.Equal(t, []string{PathLogin, PathCreateSkill, PathHome}, r.History())
}

func TestRouter_AfterLoginFailure(t *testing.T) {
	s := &fakeSession{}
	r := NewRouter(s, nil)
	r.Navigate(PathLogin)

	missing := &apiclient.Error{Kind: apiclient.KindAuthorization, Message: session.MsgAccountMissing}
	assert.Equal(t, PathSignup, r.AfterLogin(missing))

	r.Navigate(PathLogin)
	assert.Equal(t, PathLogin, r.AfterLogin(errors.New("Network Error")))
}

func TestRouter_UnknownPathAndRoleMismatch(t *testing.T) {
	s := &fakeSession{user: member}
	r := NewRouter(s, nil)
	assert.Equal(t, "/nowhere", r.Navigate("/nowhere"))
	assert.Equal(t, PathHome, r.Navigate(PathReports))
}

func TestRouter_SessionExpiredGoesToLogin(t *testing.T) {
	s := &fakeSession{user: member}
	r := NewRouter(s, nil)
	r.Navigate(PathQuestions)

	r.SessionRefreshed(apiclient.AuthResult{AccessToken: "T2"})
	assert.Equal(t, PathQuestions, r.Current())

	r.SessionExpired(errors.New("expired"))
	assert.Equal(t, PathLogin, r.Current())
}

func TestNavbar(t *testing.T) {
	t.Run("Anonymous", func(t *testing.T) {
		s := &fakeSession{}
		n := NewNavbar(s, NewRouter(s, nil))
		assert.Equal(t, []Link{
			{Label: "All Questions", Path: PathQuestions},
			{Label: "Solve", Path: PathSolutions},
			{Label: "Login", Path: PathLogin},
			{Label: "Signup", Path: PathSignup},
		}, n.Links())
		assert.False(t, n.ShowLogout())
		assert.False(t, n.IsAdmin())
	})

	t.Run("Admin", func(t *testing.T) {
		s := &fakeSession{user: admin}
		n := NewNavbar(s, NewRouter(s, nil))
		links := n.Links()
		assert.Len(t, links, 5)
		assert.Contains(t, links, Link{Label: "Report", Path: PathReports})
		assert.True(t, n.ShowLogout())
		assert.True(t, n.IsAdmin())
		assert.Equal(t, "Admin", n.UserLabel())
	})

	t.Run("UserHasNoAdminLinks", func(t *testing.T) {
		s := &fakeSession{user: member}
		n := NewNavbar(s, NewRouter(s, nil))
		assert.NotContains(t, n.Links(), Link{Label: "Report", Path: PathReports})
		assert.Equal(t, "User", n.UserLabel())
	})

	t.Run("LogoutNavigatesToLogin", func(t *testing.T) {
		s := &fakeSession{user: admin}
		r := NewRouter(s, nil)
		n := NewNavbar(s, r)
		r.Navigate(PathReports)

		assert.Equal(t, PathLogin, n.Logout())
		assert.Equal(t, 1, s.logouts)
		assert.Nil(t, s.user)
		assert.Equal(t, PathLogin, r.Current())
	})
}
