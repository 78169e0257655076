package mail

import (
	"errors"
	"fmt"
	"marketplace/config"
	"marketplace/log"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"
	"github.com/aliyun/alibaba-cloud-sdk-go/services/dm"

	eParser "github.com/go-errors/errors"
)

var (
	dmClient *dm.Client
	enabled  bool
	mu       sync.RWMutex
)

// Init inits aliyun mail config.
func Init(enableMail bool) {
	mu.Lock()
	defer mu.Unlock()

	enabled = enableMail
	if !enableMail {
		return
	}

	if err := config.LoadAliyunMailConfig(); err != nil {
		panic(err)
	}

	mailCfg := config.GetAliyunMailConfig()

	var err error
	dmClient, err = dm.NewClientWithAccessKey(
		mailCfg.Region,
		mailCfg.AccessKeyID,
		mailCfg.AccessKeySecret)

	if err != nil {
		panic(err)
	}
}

func isEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// AlertIfErr Captures paniced error and send mail.
// The panic is re-raised after the alert so the process still stops.
func AlertIfErr() {
	r := recover()
	if r == nil {
		return
	}

	var err error
	switch t := r.(type) {
	case string:
		err = errors.New(t)
	case error:
		err = t
	default:
		err = fmt.Errorf("unknown error: %v", t)
	}

	stack := eParser.Wrap(err, 2).ErrorStack()
	log.Error.Println(stack)
	SendNotify("Error Detected", stack)

	panic(r)
}

// AlertFatal logs err with the caller's stack and mails it.
func AlertFatal(op string, err error) {
	if err == nil {
		return
	}

	stack := eParser.Wrap(err, 1).ErrorStack()
	log.Error.WithField("op", op).Error(stack)
	SendNotify(fmt.Sprintf("Fatal error in %s", op), stack)
}

// SendNotify sends mail to configured receivers.
func SendNotify(subject string, content string) {
	if !isEnabled() {
		return
	}

	if content == "" {
		log.Printf("Mail content cannot be empty\n")
		debug.PrintStack()
		return
	}

	mailCfg := config.GetAliyunMailConfig()

	req := dm.CreateSingleSendMailRequest()
	req.AccountName = mailCfg.AccountName
	req.ReplyToAddress = requests.NewBoolean(false)
	req.AddressType = requests.NewInteger(1)
	if config.GetLabel() != "" {
		req.FromAlias = fmt.Sprintf("[%s]-market", config.GetLabel())
	} else {
		req.FromAlias = "marketplace"
	}
	req.Subject = subject
	req.TextBody = content
	req.ToAddress = strings.Join(mailCfg.Receiver, ",")

	_, err := dmClient.SingleSendMail(req)

	if err != nil {
		log.Error.Printf("send alert mail: %v", err)
	}
}
