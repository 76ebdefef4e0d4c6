package store

// Kind names one of the fixed record categories.
type Kind string

const (
	KindProduct      Kind = "product"
	KindService      Kind = "service"
	KindSubscription Kind = "subscription"
)

// Kinds returns every record kind in listing order.
func Kinds() []Kind {
	return []Kind{KindProduct, KindService, KindSubscription}
}

// Frequency is the billing period of a subscription.
type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Record is one of Product, Service or Subscription.
// The set is closed: only types in this package implement it.
type Record interface {
	Kind() Kind
	withID(id int) Record
}

// Product is a simple priced item.
type Product struct {
	ID    int
	Name  string
	Price float64
}

// Service is a time-based offering, duration is in minutes.
type Service struct {
	ID       int
	Name     string
	Duration int
}

// Subscription is a recurring plan billed every Frequency.
type Subscription struct {
	ID        int
	Name      string
	Price     float64
	Frequency Frequency
}

func (Product) Kind() Kind { return KindProduct }
func (Service) Kind() Kind { return KindService }
func (Subscription) Kind() Kind { return KindSubscription }

func (p Product) withID(id int) Record {
	p.ID = id
	return p
}

func (s Service) withID(id int) Record {
	s.ID = id
	return s
}

func (s Subscription) withID(id int) Record {
	s.ID = id
	return s
}
