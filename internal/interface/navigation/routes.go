// Package navigation 是 session 的讀取端：路由守衛、路由器與導覽列。
// 除了導覽列的登出動作外，這裡不會修改 session。
package navigation

import "master-o-quizz/internal/domain/auth"

// 頁面路徑。
const (
	PathHome           = "/"
	PathLogin          = "/login"
	PathSignup         = "/signup"
	PathQuestions      = "/questions"
	PathSolutions      = "/solutions"
	PathCreateSkill    = "/admin/skill/create-new-skill"
	PathCreateQuestion = "/admin/question/create-new-question"
	PathReports        = "/admin/reports"
)

// Route 一個頁面與它的存取限制。
type Route struct {
	Path        string
	Title       string
	RequireAuth bool
	// AllowedRoles 為空代表任何登入者皆可。
	AllowedRoles []auth.Role
}

// Routes 應用程式的所有頁面。
var Routes = []Route{
	{Path: PathHome, Title: "Home"},
	{Path: PathLogin, Title: "Login"},
	{Path: PathSignup, Title: "Signup"},
	{Path: PathQuestions, Title: "All Questions"},
	{Path: PathSolutions, Title: "Solve"},
	{Path: PathCreateSkill, Title: "Create New Skill", RequireAuth: true, AllowedRoles: []auth.Role{auth.RoleAdmin}},
	{Path: PathCreateQuestion, Title: "Create New Question", RequireAuth: true, AllowedRoles: []auth.Role{auth.RoleAdmin}},
	{Path: PathReports, Title: "Report", RequireAuth: true, AllowedRoles: []auth.Role{auth.RoleAdmin}},
}

// Lookup 依路徑找出路由。
func Lookup(path string) (Route, bool) {
	for _, r := range Routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// Decision 守衛判斷結果；Allow 為 false 時導向 Redirect。
type Decision struct {
	Allow    bool
	Redirect string
}

// Guard 未登入進入需登入頁面時導向登入頁，角色不符時導回首頁。
func Guard(route Route, user *auth.User) Decision {
	if !route.RequireAuth {
		return Decision{Allow: true}
	}
	if user == nil {
		return Decision{Redirect: PathLogin}
	}
	if !user.HasRole(route.AllowedRoles...) {
		return Decision{Redirect: PathHome}
	}
	return Decision{Allow: true}
}
