// Package mcp exposes the email manager as MCP tools over stdio.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ZihaoFU245/It-s-Friday/internal/manager"
)

// Tool name constants.
const (
	ToolListAccounts = "list_email_accounts"
	ToolSendEmail    = "send_email"
	ToolReplyEmail   = "reply_email"
	ToolGetUnread    = "get_unread_emails"
	ToolCountUnread  = "count_unread_emails"
	ToolSearchEmails = "search_emails"
	ToolGetEmail     = "get_email"
	ToolMarkRead     = "mark_emails_read"
	ToolMarkUnread   = "mark_emails_unread"
	ToolDeleteEmail  = "delete_email"
	ToolMoveEmail    = "move_email"
	ToolCreateDraft  = "create_draft"
	ToolSendDraft    = "send_draft"
	ToolDeleteDraft  = "delete_draft"
	ToolListDrafts   = "list_drafts"
	ToolListFolders  = "list_folders"
)

// Common argument helpers for recurring tool option definitions.

func withAccount() mcp.ToolOption {
	return mcp.WithString("account",
		mcp.Description("Account name from list_email_accounts (default account when omitted)"),
	)
}

func withMax(defaultDesc string) mcp.ToolOption {
	return mcp.WithNumber("max_results",
		mcp.Description("Maximum results to return (default "+defaultDesc+")"),
	)
}

// Serve creates an MCP server with email tools and serves over stdio.
// It blocks until stdin is closed or the context is cancelled.
func Serve(ctx context.Context, mgr *manager.Manager) error {
	s := server.NewMCPServer(
		"friday",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	h := &handlers{manager: mgr}

	s.AddTool(listAccountsTool(), h.listAccounts)
	s.AddTool(sendEmailTool(), h.sendEmail)
	s.AddTool(replyEmailTool(), h.replyEmail)
	s.AddTool(getUnreadTool(), h.getUnread)
	s.AddTool(countUnreadTool(), h.countUnread)
	s.AddTool(searchEmailsTool(), h.searchEmails)
	s.AddTool(getEmailTool(), h.getEmail)
	s.AddTool(markReadTool(), h.markRead)
	s.AddTool(markUnreadTool(), h.markUnread)
	s.AddTool(deleteEmailTool(), h.deleteEmail)
	s.AddTool(moveEmailTool(), h.moveEmail)
	s.AddTool(createDraftTool(), h.createDraft)
	s.AddTool(sendDraftTool(), h.sendDraft)
	s.AddTool(deleteDraftTool(), h.deleteDraft)
	s.AddTool(listDraftsTool(), h.listDrafts)
	s.AddTool(listFoldersTool(), h.listFolders)

	stdio := server.NewStdioServer(s)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func listAccountsTool() mcp.Tool {
	return mcp.NewTool(ToolListAccounts,
		mcp.WithDescription("List configured email accounts with provider, enabled flag, and which one is the default."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func sendEmailTool() mcp.Tool {
	return mcp.NewTool(ToolSendEmail,
		mcp.WithDescription("Send an email from one of the configured accounts. Supports plain text and HTML bodies plus file attachments."),
		withAccount(),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient addresses, comma separated"),
		),
		mcp.WithString("cc",
			mcp.Description("Cc addresses, comma separated"),
		),
		mcp.WithString("bcc",
			mcp.Description("Bcc addresses, comma separated"),
		),
		mcp.WithString("subject",
			mcp.Description("Message subject"),
		),
		mcp.WithString("body",
			mcp.Description("Plain text body"),
		),
		mcp.WithString("html_body",
			mcp.Description("HTML body (sent as multipart/alternative with the text body)"),
		),
		mcp.WithString("attachments",
			mcp.Description("Local file paths to attach, comma separated"),
		),
	)
}

func replyEmailTool() mcp.Tool {
	return mcp.NewTool(ToolReplyEmail,
		mcp.WithDescription("Reply to an existing email, preserving the conversation thread. Set reply_all to include all original recipients."),
		withAccount(),
		mcp.WithString("message_id",
			mcp.Required(),
			mcp.Description("ID of the message to reply to"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Plain text reply body"),
		),
		mcp.WithString("html_body",
			mcp.Description("HTML reply body"),
		),
		mcp.WithBoolean("reply_all",
			mcp.Description("Reply to all original recipients instead of just the sender"),
		),
	)
}

func getUnreadTool() mcp.Tool {
	return mcp.NewTool(ToolGetUnread,
		mcp.WithDescription("Get unread emails from one account, or from every enabled account when all_accounts is true."),
		mcp.WithReadOnlyHintAnnotation(true),
		withAccount(),
		mcp.WithBoolean("all_accounts",
			mcp.Description("Fetch from every enabled account in parallel"),
		),
		withMax("20"),
		mcp.WithString("folder",
			mcp.Description("Restrict to a folder or Gmail category (primary, promotions, social, updates, forums)"),
		),
		mcp.WithNumber("hours_back",
			mcp.Description("Only messages newer than this many hours"),
		),
	)
}

func countUnreadTool() mcp.Tool {
	return mcp.NewTool(ToolCountUnread,
		mcp.WithDescription("Count unread emails for one account, or across every enabled account when all_accounts is true."),
		mcp.WithReadOnlyHintAnnotation(true),
		withAccount(),
		mcp.WithBoolean("all_accounts",
			mcp.Description("Count across every enabled account"),
		),
		mcp.WithString("folder",
			mcp.Description("Restrict to a folder or Gmail category"),
		),
		mcp.WithNumber("hours_back",
			mcp.Description("Only messages newer than this many hours"),
		),
	)
}

func searchEmailsTool() mcp.Tool {
	return mcp.NewTool(ToolSearchEmails,
		mcp.WithDescription("Search emails with the provider's query syntax (e.g. 'from:alice subject:meeting is:unread')."),
		mcp.WithReadOnlyHintAnnotation(true),
		withAccount(),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Provider search query"),
		),
		withMax("20"),
	)
}

func getEmailTool() mcp.Tool {
	return mcp.NewTool(ToolGetEmail,
		mcp.WithDescription("Get one email in full, including decoded text and HTML bodies and attachment metadata."),
		mcp.WithReadOnlyHintAnnotation(true),
		withAccount(),
		mcp.WithString("message_id",
			mcp.Required(),
			mcp.Description("Message ID"),
		),
	)
}

func markReadTool() mcp.Tool {
	return mcp.NewTool(ToolMarkRead,
		mcp.WithDescription("Mark one or more emails as read."),
		withAccount(),
		mcp.WithString("message_ids",
			mcp.Required(),
			mcp.Description("Message IDs, comma separated"),
		),
	)
}

func markUnreadTool() mcp.Tool {
	return mcp.NewTool(ToolMarkUnread,
		mcp.WithDescription("Mark one or more emails as unread."),
		withAccount(),
		mcp.WithString("message_ids",
			mcp.Required(),
			mcp.Description("Message IDs, comma separated"),
		),
	)
}

func deleteEmailTool() mcp.Tool {
	return mcp.NewTool(ToolDeleteEmail,
		mcp.WithDescription("Delete an email. Moves to trash by default; permanent deletion bypasses the trash."),
		withAccount(),
		mcp.WithString("message_id",
			mcp.Required(),
			mcp.Description("Message ID"),
		),
		mcp.WithBoolean("permanent",
			mcp.Description("Permanently delete instead of moving to trash"),
		),
	)
}

func moveEmailTool() mcp.Tool {
	return mcp.NewTool(ToolMoveEmail,
		mcp.WithDescription("Move an email to a folder or label."),
		withAccount(),
		mcp.WithString("message_id",
			mcp.Required(),
			mcp.Description("Message ID"),
		),
		mcp.WithString("folder",
			mcp.Required(),
			mcp.Description("Destination folder or label name"),
		),
	)
}

func createDraftTool() mcp.Tool {
	return mcp.NewTool(ToolCreateDraft,
		mcp.WithDescription("Create a draft email without sending it."),
		withAccount(),
		mcp.WithString("to",
			mcp.Description("Recipient addresses, comma separated"),
		),
		mcp.WithString("subject",
			mcp.Description("Message subject"),
		),
		mcp.WithString("body",
			mcp.Description("Plain text body"),
		),
		mcp.WithString("html_body",
			mcp.Description("HTML body"),
		),
	)
}

func sendDraftTool() mcp.Tool {
	return mcp.NewTool(ToolSendDraft,
		mcp.WithDescription("Send an existing draft."),
		withAccount(),
		mcp.WithString("draft_id",
			mcp.Required(),
			mcp.Description("Draft ID from list_drafts or create_draft"),
		),
	)
}

func deleteDraftTool() mcp.Tool {
	return mcp.NewTool(ToolDeleteDraft,
		mcp.WithDescription("Delete a draft."),
		withAccount(),
		mcp.WithString("draft_id",
			mcp.Required(),
			mcp.Description("Draft ID"),
		),
	)
}

func listDraftsTool() mcp.Tool {
	return mcp.NewTool(ToolListDrafts,
		mcp.WithDescription("List drafts for an account."),
		mcp.WithReadOnlyHintAnnotation(true),
		withAccount(),
		withMax("20"),
	)
}

func listFoldersTool() mcp.Tool {
	return mcp.NewTool(ToolListFolders,
		mcp.WithDescription("List folders or labels for an account, with message and unread counts."),
		mcp.WithReadOnlyHintAnnotation(true),
		withAccount(),
	)
}
