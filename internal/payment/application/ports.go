package application

import (
	"github.com/dmehra2102/myshop/internal/payment/domain"
	"github.com/dmehra2102/myshop/pkg/repository"
)

type PaymentRepository = repository.Repository[domain.Payment]
