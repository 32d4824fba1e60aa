package assistant

import (
	"fmt"
	"strings"

	"assetledger/internal/core"
	"assetledger/pkg/domain"
)

func roleDisplayName(role core.Role) string {
	switch role {
	case domain.RoleAdmin:
		return "Administrator (Admin)"
	case domain.RoleManager:
		return "Department manager (Manager)"
	default:
		return "Employee (Staff)"
	}
}

func roleGuide(role core.Role) string {
	switch role {
	case domain.RoleAdmin:
		return "Admins manage departments, users, asset types and every asset. They can create, update, delete, assign, revoke and evaluate assets and export the asset history."
	case domain.RoleManager:
		return "Managers see the assets of their department, are notified when an asset is assigned to one of their employees, and can evaluate asset condition."
	default:
		return "Staff see the assets assigned to them, read their notifications and can ask for help with the asset system."
	}
}

func systemPrompt(role core.Role) string {
	name := roleDisplayName(role)
	return fmt.Sprintf(`You are a friendly assistant helping a %s use the asset management system.

SYSTEM GUIDE FOR %s:
%s

ANSWERING RULES:
1. Be friendly and professional with the %s.
2. Use the guide above for accurate information.
3. Use the earlier conversation only when it is relevant.
4. Give step by step instructions when needed.
5. If the guide does not cover the question, suggest contacting support.
6. Only describe actions the %s is permitted to perform.
7. Keep answers to simple questions short.`,
		name, strings.ToUpper(name), roleGuide(role), name, name)
}

func contextPrompt(recent []core.ChatMessage) string {
	var b strings.Builder
	b.WriteString("EARLIER CONVERSATION (use only if relevant):\n")
	for _, m := range recent {
		speaker := "Assistant"
		if m.Direction == domain.DirectionQuestion {
			speaker = "User"
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return b.String()
}
