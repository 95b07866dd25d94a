package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ZihaoFU245/It-s-Friday/internal/email"
	"github.com/ZihaoFU245/It-s-Friday/internal/manager"
)

const maxResultsLimit = 500

type handlers struct {
	manager *manager.Manager
}

// client resolves the optional "account" argument to a provider client.
func (h *handlers) client(ctx context.Context, args map[string]any) (email.Client, error) {
	account, _ := args["account"].(string)
	return h.manager.Client(ctx, account)
}

// intArg extracts a non-negative integer from a map, with a default.
// JSON numbers arrive as float64. Clamps to maxResultsLimit to prevent
// excessive result sets.
func intArg(args map[string]any, key string, def int) int {
	v, ok := args[key].(float64)
	if !ok {
		return def
	}
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) || v > float64(maxResultsLimit) {
		return maxResultsLimit
	}
	return int(v)
}

// listArg splits a comma-separated string argument into trimmed entries.
func listArg(args map[string]any, key string) []string {
	v, _ := args[key].(string)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func unreadOptions(args map[string]any) email.UnreadOptions {
	folder, _ := args["folder"].(string)
	return email.UnreadOptions{
		Folder:    folder,
		HoursBack: intArg(args, "hours_back", 0),
	}
}

func outgoingFromArgs(args map[string]any) email.Outgoing {
	subject, _ := args["subject"].(string)
	body, _ := args["body"].(string)
	htmlBody, _ := args["html_body"].(string)
	return email.Outgoing{
		To:          listArg(args, "to"),
		Cc:          listArg(args, "cc"),
		Bcc:         listArg(args, "bcc"),
		Subject:     subject,
		Body:        body,
		HTMLBody:    htmlBody,
		Attachments: listArg(args, "attachments"),
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (h *handlers) listAccounts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.manager.Summaries())
}

func (h *handlers) sendEmail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	msg := outgoingFromArgs(args)
	if len(msg.To) == 0 {
		return mcp.NewToolResultError("to parameter is required"), nil
	}

	client, err := h.client(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(client.SendEmail(ctx, msg))
}

func (h *handlers) replyEmail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	messageID, _ := args["message_id"].(string)
	if messageID == "" {
		return mcp.NewToolResultError("message_id parameter is required"), nil
	}
	body, _ := args["body"].(string)
	if body == "" {
		return mcp.NewToolResultError("body parameter is required"), nil
	}
	htmlBody, _ := args["html_body"].(string)
	replyAll, _ := args["reply_all"].(bool)

	client, err := h.client(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(client.ReplyToMessage(ctx, messageID, body, htmlBody, replyAll, nil))
}

type accountUnread struct {
	Account  string           `json:"account"`
	Messages []*email.Message `json:"messages,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func (h *handlers) getUnread(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	max := intArg(args, "max_results", 20)
	opts := unreadOptions(args)

	if all, _ := args["all_accounts"].(bool); all {
		results := h.manager.UnreadAll(ctx, max, opts)
		out := make([]accountUnread, len(results))
		for i, res := range results {
			out[i] = accountUnread{Account: res.Account, Messages: res.Messages}
			if res.Err != nil {
				out[i].Error = res.Err.Error()
			}
		}
		return jsonResult(out)
	}

	client, err := h.client(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msgs, err := client.GetUnreadMessages(ctx, max, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get unread failed: %v", err)), nil
	}
	return jsonResult(msgs)
}

type accountCount struct {
	Account string `json:"account"`
	Count   int64  `json:"count"`
	Error   string `json:"error,omitempty"`
}

func (h *handlers) countUnread(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	opts := unreadOptions(args)

	if all, _ := args["all_accounts"].(bool); all {
		results := h.manager.CountUnreadAll(ctx, opts)
		out := make([]accountCount, len(results))
		var total int64
		for i, res := range results {
			out[i] = accountCount{Account: res.Account, Count: res.Count}
			if res.Err != nil {
				out[i].Error = res.Err.Error()
			}
			total += res.Count
		}
		return jsonResult(struct {
			Accounts []accountCount `json:"accounts"`
			Total    int64          `json:"total"`
		}{Accounts: out, Total: total})
	}

	client, err := h.client(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := client.CountUnreadMessages(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("count unread failed: %v", err)), nil
	}
	return jsonResult(map[string]int64{"count": n})
}

func (h *handlers) searchEmails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	query, _ := args["query"].(string)
	if query == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	client, err := h.client(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msgs, err := client.SearchMessages(ctx, query, intArg(args, "max_results", 20))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(msgs)
}

func (h *handlers) getEmail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	messageID, _ := args["message_id"].(string)
	if messageID == "" {
		return mcp.NewToolResultError("message_id parameter is required"), nil
	}

	client, err := h.client(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg, err := client.GetMessage(ctx, messageID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("message not found: %v", err)), nil
	}
	return jsonResult(msg)
}

func (h *handlers) markRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.mark(ctx, req, true)
}

func (h *handlers) markUnread(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.mark(ctx, req, false)
}

func (h *handlers) mark(ctx context.Context, req mcp.CallToolRequest, read bool) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	ids := listArg(args, "message_ids")
	if len(ids) == 0 {
		return mcp.NewToolResultError("message_ids parameter is required"), nil
	}

	client, err := h.client(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if read {
		err = client.MarkAsRead(ctx, ids)
	} else {
		err = client.MarkAsUnread(ctx, ids)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("mark failed: %v", err)), nil
	}
	return jsonResult(map[string]any{"status": "ok", "count": len(ids)})
}

func (h *handlers) deleteEmail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	messageID, _ := args["message_id"].(string)
	if messageID == "" {
		return mcp.NewToolResultError("message_id parameter is required"), nil
	}
	permanent, _ := args["permanent"].(bool)

	client, err := h.client(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := client.DeleteMessage(ctx, messageID, permanent); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delete failed: %v", err)), nil
	}
	return jsonResult(map[string]string{"status": "deleted"})
}

func (h *handlers) moveEmail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	messageID, _ := args["message_id"].(string)
	if messageID == "" {
		return mcp.NewToolResultError("message_id parameter is required"), nil
	}
	folder, _ := args["folder"].(string)
	if folder == "" {
		return mcp.NewToolResultError("folder parameter is required"), nil
	}

	client, err := h.client(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := client.MoveToFolder(ctx, messageID, folder); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("move failed: %v", err)), nil
	}
	return jsonResult(map[string]string{"status": "moved"})
}

func (h *handlers) createDraft(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	client, err := h.client(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(client.CreateDraft(ctx, outgoingFromArgs(args)))
}

func (h *handlers) sendDraft(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	draftID, _ := args["draft_id"].(string)
	if draftID == "" {
		return mcp.NewToolResultError("draft_id parameter is required"), nil
	}

	client, err := h.client(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(client.SendDraft(ctx, draftID))
}

func (h *handlers) deleteDraft(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	draftID, _ := args["draft_id"].(string)
	if draftID == "" {
		return mcp.NewToolResultError("draft_id parameter is required"), nil
	}

	client, err := h.client(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := client.DeleteDraft(ctx, draftID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delete draft failed: %v", err)), nil
	}
	return jsonResult(map[string]string{"status": "deleted"})
}

func (h *handlers) listDrafts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	client, err := h.client(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	drafts, err := client.ListDrafts(ctx, intArg(args, "max_results", 20))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list drafts failed: %v", err)), nil
	}
	return jsonResult(drafts)
}

func (h *handlers) listFolders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	client, err := h.client(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	folders, err := client.ListFolders(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list folders failed: %v", err)), nil
	}
	return jsonResult(folders)
}
