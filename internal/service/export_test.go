package service

import "time"

func (kl *KeyedLimiter) IdleWindow() time.Duration { return kl.idle }
