package navigation

import "master-o-quizz/internal/domain/auth"

// Link 導覽列上的連結。
type Link struct {
	Label string
	Path  string
}

// SessionController 導覽列需要讀取 session 並能登出。
type SessionController interface {
	SessionReader
	Logout()
}

// Navbar 依目前使用者決定顯示的連結。
type Navbar struct {
	session SessionController
	nav     Navigator
}

func NewNavbar(s SessionController, nav Navigator) *Navbar {
	return &Navbar{session: s, nav: nav}
}

// Links 公開連結、管理者連結，最後是登入/註冊或登出。
func (n *Navbar) Links() []Link {
	user := n.session.View().User
	links := []Link{
		{Label: "All Questions", Path: PathQuestions},
		{Label: "Solve", Path: PathSolutions},
	}
	if user != nil && user.IsAdmin() {
		links = append(links,
			Link{Label: "Create New Question", Path: PathCreateQuestion},
			Link{Label: "Create New Skill", Path: PathCreateSkill},
			Link{Label: "Report", Path: PathReports},
		)
	}
	if user == nil {
		links = append(links,
			Link{Label: "Login", Path: PathLogin},
			Link{Label: "Signup", Path: PathSignup},
		)
	}
	return links
}

// ShowLogout 已登入才顯示登出。
func (n *Navbar) ShowLogout() bool {
	return n.session.View().User != nil
}

// UserLabel 顯示名稱。
func (n *Navbar) UserLabel() string {
	if u := n.session.View().User; u != nil && u.Name != "" {
		return u.Name
	}
	return "User"
}

// IsAdmin 目前使用者是否為管理者。
func (n *Navbar) IsAdmin() bool {
	u := n.session.View().User
	return u != nil && u.Role == auth.RoleAdmin
}

// Logout 登出後前往登入頁。
func (n *Navbar) Logout() string {
	n.session.Logout()
	return n.nav.Navigate(PathLogin)
}
