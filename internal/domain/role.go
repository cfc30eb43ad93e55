package domain

type Role string

const (
	RoleEditor Role = "编辑者"
	RoleViewer Role = "浏览者"
)
