package model

import "time"

const CollectionAccounts = "accounts"

// WithdrawalRecord 一条提现流水，字段名与线上 JSON 契约一致
type WithdrawalRecord struct {
	Amount        float64 `bson:"amount" json:"amount"`
	PaymentOption string  `bson:"paymentoption" json:"paymentoption"`
	PaymentType   string  `bson:"paymenttype" json:"paymenttype"`
	RecordID      string  `bson:"id" json:"id"`
}

// Account 账户文档：token 定位账户，提现流水追加在 withdrawal 数组里
type Account struct {
	UserID    string `bson:"user_id" json:"userId"`
	Token     string `bson:"token" json:"-"`
	TokenHash string `bson:"token_hash" json:"-"`

	Withdrawals []WithdrawalRecord `bson:"withdrawal" json:"withdrawal"`

	CreateTime time.Time `bson:"create_time" json:"createTime"`
	UpdateTime time.Time `bson:"update_time" json:"updateTime"`
}
