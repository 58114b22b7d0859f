package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"cloud.google.com/go/civil"

	"github.com/segyhp/loan-ledger/internal/domain"
)

// Login exchanges credentials for lending api tokens.
func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	var response domain.LoginResponse
	if err := c.execute(ctx, http.MethodPost, "/users/login/", "", req, &response); err != nil {
		return domain.LoginResponse{}, fmt.Errorf("unable to log in: %w", err)
	}
	return response, nil
}

func (c *Client) Signup(ctx context.Context, req domain.SignupRequest) error {
	if err := c.execute(ctx, http.MethodPost, "/users/signup/", "", req, nil); err != nil {
		return fmt.Errorf("unable to sign up: %w", err)
	}
	return nil
}

func (c *Client) GetLines(ctx context.Context, token string, userID int64) ([]domain.Line, error) {
	var response []lineDTO
	if err := c.execute(ctx, http.MethodGet, fmt.Sprintf("/lines/get_lines/%d/", userID), token, nil, &response); err != nil {
		return nil, fmt.Errorf("unable to get lines for user %d: %w", userID, err)
	}

	lines := make([]domain.Line, 0, len(response))
	for _, l := range response {
		lines = append(lines, domain.Line{LineID: l.LineID, LineName: l.LineName})
	}
	return lines, nil
}

// AddLine creates a line and returns its id when the lending api reports one.
func (c *Client) AddLine(ctx context.Context, token string, userID int64, req domain.NewLineRequest) (int64, error) {
	var response createdDTO
	payload := addLinePayload{LineName: req.LineName, UserID: userID}
	if err := c.execute(ctx, http.MethodPost, "/customers/add_line/", token, payload, &response); err != nil {
		return 0, fmt.Errorf("unable to add line %q: %w", req.LineName, err)
	}
	return response.pick(response.LineID), nil
}

// GetLineCustomers fetches one line's customer listing and its aggregates.
func (c *Client) GetLineCustomers(ctx context.Context, token string, lineID int64) (domain.LineListing, error) {
	var response lineCustomersDTO
	if err := c.execute(ctx, http.MethodGet, fmt.Sprintf("/customers/get/%d/", lineID), token, nil, &response); err != nil {
		return domain.LineListing{}, fmt.Errorf("unable to get customers of line %d: %w", lineID, err)
	}

	listing, err := response.toListing(lineID)
	if err != nil {
		return domain.LineListing{}, fmt.Errorf("line %d: %w", lineID, err)
	}
	return listing, nil
}

func (c *Client) GetCustomerInfo(ctx context.Context, token string, customerID int64) (domain.CustomerDetail, error) {
	var response customerDetailDTO
	if err := c.execute(ctx, http.MethodGet, fmt.Sprintf("/customers/get_customer_info/%d/", customerID), token, nil, &response); err != nil {
		return domain.CustomerDetail{}, fmt.Errorf("unable to get customer %d: %w", customerID, err)
	}

	detail, err := response.toDomain()
	if err != nil {
		return domain.CustomerDetail{}, fmt.Errorf("customer %d: %w", customerID, err)
	}
	return detail, nil
}

type addCustomerPayload struct {
	LineID                int64       `json:"line_id"`
	CustomerName          string      `json:"customer_name"`
	CustomerMobileNumber  string      `json:"customer_mobile_number"`
	AlternateMobileNumber string      `json:"alternate_mobile_number,omitempty"`
	DateOfBirth           *civil.Date `json:"date_of_birth,omitempty"`
	AadharNumber          string      `json:"aadhar_number,omitempty"`
	PanNumber             string      `json:"pan_number,omitempty"`
	Address               string      `json:"address,omitempty"`
}

func (c *Client) AddCustomer(ctx context.Context, token string, req domain.NewCustomerRequest) (int64, error) {
	payload := addCustomerPayload{
		LineID:                req.LineID,
		CustomerName:          req.CustomerName,
		CustomerMobileNumber:  req.CustomerMobileNumber,
		AlternateMobileNumber: req.AlternateMobileNumber,
		AadharNumber:          req.AadharNumber,
		PanNumber:             req.PanNumber,
		Address:               req.Address,
	}
	if req.DateOfBirth.IsValid() {
		dob := req.DateOfBirth
		payload.DateOfBirth = &dob
	}

	var response createdDTO
	if err := c.execute(ctx, http.MethodPost, "/customers/add/", token, payload, &response); err != nil {
		return 0, fmt.Errorf("unable to add customer to line %d: %w", req.LineID, err)
	}
	return response.pick(response.CustomerID), nil
}

// ToggleMissingCustomer flips the missing flag. The returned flag is nil when
// the lending api does not echo it.
func (c *Client) ToggleMissingCustomer(ctx context.Context, token string, customerID int64) (*bool, error) {
	var response missingToggleDTO
	if err := c.execute(ctx, http.MethodPost, fmt.Sprintf("/customers/add_to_missing_customer/%d/", customerID), token, nil, &response); err != nil {
		return nil, fmt.Errorf("unable to toggle missing flag of customer %d: %w", customerID, err)
	}
	return response.IsMissingCustomer, nil
}

func (c *Client) DeleteCustomer(ctx context.Context, token string, customerID int64) error {
	if err := c.execute(ctx, http.MethodDelete, fmt.Sprintf("/customers/delete_customer/%d/", customerID), token, nil, nil); err != nil {
		return fmt.Errorf("unable to delete customer %d: %w", customerID, err)
	}
	return nil
}

// GetLoanDetails fetches one loan and converts it into a snapshot.
func (c *Client) GetLoanDetails(ctx context.Context, token string, loanID int64) (domain.LoanSnapshot, error) {
	var response loanDetailsDTO
	if err := c.execute(ctx, http.MethodGet, fmt.Sprintf("/loans/loan_details/%d/", loanID), token, nil, &response); err != nil {
		return domain.LoanSnapshot{}, fmt.Errorf("unable to get loan %d: %w", loanID, err)
	}

	if response.LoanID == 0 {
		response.LoanID = loanID
	}

	snapshot, err := response.toSnapshot()
	if err != nil {
		return domain.LoanSnapshot{}, fmt.Errorf("loan %d: %w", loanID, err)
	}
	return snapshot, nil
}

func (c *Client) AddLoan(ctx context.Context, token string, req domain.NewLoanRequest) (int64, error) {
	var response createdDTO
	if err := c.execute(ctx, http.MethodPost, "/loans/add/", token, newAddLoanPayload(req), &response); err != nil {
		return 0, fmt.Errorf("unable to add loan for customer %d: %w", req.CustomerID, err)
	}
	return response.pick(response.LoanID), nil
}

func (c *Client) DeleteLoan(ctx context.Context, token string, loanID int64) error {
	if err := c.execute(ctx, http.MethodDelete, fmt.Sprintf("/loans/delete_loan/%d/", loanID), token, nil, nil); err != nil {
		return fmt.Errorf("unable to delete loan %d: %w", loanID, err)
	}
	return nil
}

func (c *Client) SendLoanSMS(ctx context.Context, token string, req domain.LoanSMSRequest) error {
	if err := c.execute(ctx, http.MethodPost, "/loans/send-sms/", token, req, nil); err != nil {
		return fmt.Errorf("unable to send loan sms: %w", err)
	}
	return nil
}

func (c *Client) AddRepayment(ctx context.Context, token string, req domain.NewRepaymentRequest) error {
	payload := addRepaymentPayload{
		LoanID:          req.LoanID,
		RepaymentType:   apiRepaymentType(req.RepaymentType),
		RepaymentAmount: req.Amount,
		PaymentDate:     req.PaymentDate,
		Comments:        req.Comments,
	}
	if err := c.execute(ctx, http.MethodPost, "/repayments/add/", token, payload, nil); err != nil {
		return fmt.Errorf("unable to add repayment to loan %d: %w", req.LoanID, err)
	}
	return nil
}

func (c *Client) AddExpense(ctx context.Context, token string, userID int64, req domain.NewExpenseRequest) error {
	payload := addExpensePayload{
		ExpenseAmount: req.ExpenseAmount,
		ExpenseDate:   req.ExpenseDate,
		Description:   req.Description,
		UserID:        userID,
	}
	if err := c.execute(ctx, http.MethodPost, "/expenses/add/", token, payload, nil); err != nil {
		return fmt.Errorf("unable to add expense: %w", err)
	}
	return nil
}

func (c *Client) ViewExpenses(ctx context.Context, token string, userID int64) ([]domain.Expense, error) {
	query := url.Values{"user_id": {strconv.FormatInt(userID, 10)}}

	var response []expenseDTO
	if err := c.execute(ctx, http.MethodGet, "/expenses/view_expenses/?"+query.Encode(), token, nil, &response); err != nil {
		return nil, fmt.Errorf("unable to list expenses: %w", err)
	}

	expenses := make([]domain.Expense, 0, len(response))
	for _, e := range response {
		expenses = append(expenses, e.toDomain())
	}
	return expenses, nil
}
